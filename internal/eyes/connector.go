package eyes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/rs/zerolog"
)

const runningSessionsPath = "/api/sessions/running"

// AppEnvironment describes where the checkpoints were captured.
type AppEnvironment struct {
	OS          string        `json:"os,omitempty"`
	HostingApp  string        `json:"hostingApp,omitempty"`
	DisplaySize geometry.Size `json:"displaySize"`
	Inferred    string        `json:"inferred,omitempty"`
}

// ImageMatchSettings controls how one image, or a whole session by default,
// is compared.
type ImageMatchSettings struct {
	MatchLevel MatchLevel                `json:"matchLevel"`
	Ignore     []geometry.Region         `json:"ignore,omitempty"`
	Floating   []geometry.FloatingRegion `json:"floating,omitempty"`
}

// SessionStartInfo is the body of a start-session request.
type SessionStartInfo struct {
	AgentID              string             `json:"agentId"`
	AppIDOrName          string             `json:"appIdOrName"`
	ScenarioIDOrName     string             `json:"scenarioIdOrName"`
	BatchInfo            *BatchInfo         `json:"batchInfo,omitempty"`
	BaselineEnvName      string             `json:"baselineEnvName,omitempty"`
	Environment          AppEnvironment     `json:"environment"`
	DefaultMatchSettings ImageMatchSettings `json:"defaultMatchSettings"`
	BranchName           string             `json:"branchName,omitempty"`
	ParentBranchName     string             `json:"parentBranchName,omitempty"`
}

// RunningSession identifies a session on the server.
type RunningSession struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId"`
	BatchID    string `json:"batchId"`
	BaselineID string `json:"baselineId"`
	URL        string `json:"url"`
	// IsNew is set when the server created a new baseline for this session.
	IsNew bool `json:"-"`
}

// AppOutput is the captured image and page title of one checkpoint.
type AppOutput struct {
	Title        string `json:"title"`
	Screenshot64 string `json:"screenshot64"`
}

// MatchOptions are the per-checkpoint match flags.
type MatchOptions struct {
	Name               string             `json:"name"`
	UserInputs         []interface{}      `json:"userInputs"`
	IgnoreMismatch     bool               `json:"ignoreMismatch"`
	IgnoreMatch        bool               `json:"ignoreMatch"`
	ForceMismatch      bool               `json:"forceMismatch"`
	ForceMatch         bool               `json:"forceMatch"`
	ImageMatchSettings ImageMatchSettings `json:"imageMatchSettings"`
}

// MatchWindowData is the body of a match request.
type MatchWindowData struct {
	AppOutput      AppOutput     `json:"appOutput"`
	UserInputs     []interface{} `json:"userInputs"`
	Tag            string        `json:"tag"`
	IgnoreMismatch bool          `json:"ignoreMismatch"`
	Options        MatchOptions  `json:"options"`
}

// MatchResult is the server's verdict on one checkpoint.
type MatchResult struct {
	AsExpected bool `json:"asExpected"`
}

// TestResults summarises a finished session.
type TestResults struct {
	Steps          int    `json:"steps"`
	Matches        int    `json:"matches"`
	Mismatches     int    `json:"mismatches"`
	Missing        int    `json:"missing"`
	ExactMatches   int    `json:"exactMatches"`
	StrictMatches  int    `json:"strictMatches"`
	ContentMatches int    `json:"contentMatches"`
	LayoutMatches  int    `json:"layoutMatches"`
	NoneMatches    int    `json:"noneMatches"`
	Status         string `json:"status,omitempty"`
	URL            string `json:"url,omitempty"`
	IsNew          bool   `json:"isNew"`
	IsAborted      bool   `json:"isAborted"`
}

// IsPassed reports whether the session matched its baseline.
func (r *TestResults) IsPassed() bool {
	return !r.IsNew && r.Mismatches == 0 && r.Missing == 0
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Connector talks to the visual-testing server's running-session API.
type Connector struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewConnector creates a connector for serverURL authenticating with apiKey.
func NewConnector(serverURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Connector {
	client := resty.New().
		SetBaseURL(serverURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetQueryParam("apiKey", apiKey)

	return &Connector{
		client: client,
		logger: logger.With().Str("component", "connector").Logger(),
	}
}

// StartSession opens a running session. A 201 response marks it as new.
func (c *Connector) StartSession(ctx context.Context, info *SessionStartInfo) (*RunningSession, error) {
	body := struct {
		StartInfo *SessionStartInfo `json:"startInfo"`
	}{StartInfo: info}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(runningSessionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Operation: "start session", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var session RunningSession
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return nil, fmt.Errorf("failed to decode start session response: %w", err)
	}
	session.IsNew = resp.StatusCode() == http.StatusCreated

	c.logger.Debug().
		Str("session", session.ID).
		Bool("new", session.IsNew).
		Str("app", info.AppIDOrName).
		Str("test", info.ScenarioIDOrName).
		Msg("session started")
	return &session, nil
}

// MatchWindow submits one checkpoint.
func (c *Connector) MatchWindow(ctx context.Context, session *RunningSession, data *MatchWindowData) (*MatchResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", session.ID).
		SetBody(data).
		Post(runningSessionsPath + "/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to match window: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Operation: "match window", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var result MatchResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode match response: %w", err)
	}

	c.logger.Debug().
		Str("session", session.ID).
		Str("tag", data.Tag).
		Bool("as_expected", result.AsExpected).
		Bool("ignore_mismatch", data.IgnoreMismatch).
		Msg("match submitted")
	return &result, nil
}

// StopSession ends the session, optionally aborting it or saving it as the
// new baseline.
func (c *Connector) StopSession(ctx context.Context, session *RunningSession, aborted, updateBaseline bool) (*TestResults, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", session.ID).
		SetQueryParam("aborted", strconv.FormatBool(aborted)).
		SetQueryParam("updateBaseline", strconv.FormatBool(updateBaseline)).
		Delete(runningSessionsPath + "/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Operation: "stop session", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var results TestResults
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return nil, fmt.Errorf("failed to decode stop session response: %w", err)
	}
	results.IsNew = session.IsNew
	results.IsAborted = aborted
	if results.URL == "" {
		results.URL = session.URL
	}

	c.logger.Debug().
		Str("session", session.ID).
		Bool("aborted", aborted).
		Bool("update_baseline", updateBaseline).
		Int("mismatches", results.Mismatches).
		Msg("session stopped")
	return &results, nil
}
