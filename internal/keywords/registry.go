package keywords

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/insajin/appeyes/internal/metrics"
	"github.com/rs/zerolog"
)

// Handler runs a keyword with bound arguments. The returned value may be
// assigned to a suite variable.
type Handler func(ctx context.Context, args Args) (interface{}, error)

// Keyword is one named, documented operation.
type Keyword struct {
	Name    string
	Args    []Arg
	Doc     string
	Handler Handler
}

// Signature renders the argument list, e.g. "name, force_full_page=False".
func (k *Keyword) Signature() string {
	parts := make([]string, len(k.Args))
	for i, a := range k.Args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// Registry resolves keyword names to keywords.
type Registry struct {
	keywords map[string]*Keyword
	order    []string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(m *metrics.Metrics, logger zerolog.Logger) *Registry {
	return &Registry{
		keywords: make(map[string]*Keyword),
		metrics:  m,
		logger:   logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds kw, replacing a keyword with the same normalised name.
func (r *Registry) Register(kw Keyword) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := NormalizeName(kw.Name)
	if _, exists := r.keywords[key]; !exists {
		r.order = append(r.order, key)
	}
	r.keywords[key] = &kw
}

// Lookup finds a keyword by name in any case, with or without spaces and
// underscores.
func (r *Registry) Lookup(name string) (*Keyword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kw, ok := r.keywords[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownKeyword, name)
	}
	return kw, nil
}

// Keywords returns the keywords in registration order.
func (r *Registry) Keywords() []*Keyword {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Keyword, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.keywords[key])
	}
	return out
}

// Run binds positional and name=value arguments and runs the keyword.
func (r *Registry) Run(ctx context.Context, name string, raw []string) (interface{}, error) {
	kw, err := r.Lookup(name)
	if err != nil {
		r.metrics.RecordKeyword(err)
		return nil, err
	}
	args, err := bind(kw, raw)
	if err != nil {
		r.metrics.RecordKeyword(err)
		return nil, err
	}
	return r.invoke(ctx, kw, args)
}

// RunNamed runs the keyword with arguments given by name.
func (r *Registry) RunNamed(ctx context.Context, name string, named map[string]string) (interface{}, error) {
	kw, err := r.Lookup(name)
	if err != nil {
		r.metrics.RecordKeyword(err)
		return nil, err
	}
	args, err := bindNamed(kw, named)
	if err != nil {
		r.metrics.RecordKeyword(err)
		return nil, err
	}
	return r.invoke(ctx, kw, args)
}

func (r *Registry) invoke(ctx context.Context, kw *Keyword, args Args) (interface{}, error) {
	start := time.Now()
	result, err := kw.Handler(ctx, args)
	r.metrics.RecordKeyword(err)

	event := r.logger.Debug()
	if err != nil {
		event = r.logger.Warn().Err(err)
	}
	event.Str("keyword", kw.Name).
		Dur("duration", time.Since(start)).
		Msg("keyword finished")
	return result, err
}
