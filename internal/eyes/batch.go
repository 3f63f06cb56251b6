package eyes

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default environment variables set by CI integrations to share a batch
// across processes.
const (
	DefaultBatchIDEnv   = "APPLITOOLS_BATCH_ID"
	DefaultBatchNameEnv = "JOB_NAME"
)

// BatchInfo groups sessions for reporting on the dashboard.
type BatchInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"startedAt"`
}

// NewBatchInfo creates a batch with a fresh ID.
func NewBatchInfo(name string) *BatchInfo {
	return &BatchInfo{
		ID:        uuid.New().String(),
		Name:      name,
		StartedAt: time.Now().UTC(),
	}
}

// BatchRegistry hands out one BatchInfo per batch name so that tests sharing
// a name land in the same batch.
type BatchRegistry struct {
	idEnv   string
	nameEnv string
	batches map[string]*BatchInfo
	mu      sync.Mutex
}

// NewBatchRegistry creates a registry. Empty env names fall back to the
// defaults.
func NewBatchRegistry(idEnv, nameEnv string) *BatchRegistry {
	if idEnv == "" {
		idEnv = DefaultBatchIDEnv
	}
	if nameEnv == "" {
		nameEnv = DefaultBatchNameEnv
	}
	return &BatchRegistry{
		idEnv:   idEnv,
		nameEnv: nameEnv,
		batches: make(map[string]*BatchInfo),
	}
}

// Get returns the batch for name, creating it on first use. With fromEnv
// set and the batch ID variable present, the descriptor takes that ID and
// keeps name, or the CI job name when name is empty. It returns nil when
// there is nothing to group by.
func (r *BatchRegistry) Get(name string, fromEnv bool) *BatchInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fromEnv {
		if id := os.Getenv(r.idEnv); id != "" {
			if name == "" {
				name = os.Getenv(r.nameEnv)
			}
			key := "env:" + id + "\x00" + name
			if b, ok := r.batches[key]; ok {
				return b
			}
			b := &BatchInfo{ID: id, Name: name, StartedAt: time.Now().UTC()}
			r.batches[key] = b
			return b
		}
	}

	if name == "" {
		return nil
	}
	if b, ok := r.batches[name]; ok {
		return b
	}
	b := NewBatchInfo(name)
	r.batches[name] = b
	return b
}
