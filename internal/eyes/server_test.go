package eyes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

const testAPIKey = "test-api-key-0123456789"

// fakeServer records running-session requests.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	newSession bool
	verdicts   []bool
	mismatch   bool
	results    TestResults
	failStart  bool

	starts  []SessionStartInfo
	matches []MatchWindowData
	stops   []url.Values
	apiKeys []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, results: TestResults{Steps: 1, Matches: 1}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) URL() string { return f.srv.URL }

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.URL.Query().Get("apiKey"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == runningSessionsPath:
		if f.failStart {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad api key"}`))
			return
		}
		var body struct {
			StartInfo SessionStartInfo `json:"startInfo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode start session body: %v", err)
		}
		f.starts = append(f.starts, body.StartInfo)
		if f.newSession {
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write([]byte(`{"id":"sess-1","sessionId":"s1","batchId":"b1","baselineId":"bl1","url":"https://eyes.test/app/sessions/1"}`))

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, runningSessionsPath+"/"):
		var data MatchWindowData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			f.t.Errorf("decode match body: %v", err)
		}
		f.matches = append(f.matches, data)
		verdict := !f.mismatch
		if len(f.verdicts) > 0 {
			verdict, f.verdicts = f.verdicts[0], f.verdicts[1:]
		}
		_ = json.NewEncoder(w).Encode(MatchResult{AsExpected: verdict})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, runningSessionsPath+"/"):
		f.stops = append(f.stops, r.URL.Query())
		_ = json.NewEncoder(w).Encode(f.results)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) snapshot() (starts []SessionStartInfo, matches []MatchWindowData, stops []url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SessionStartInfo(nil), f.starts...),
		append([]MatchWindowData(nil), f.matches...),
		append([]url.Values(nil), f.stops...)
}

func (f *fakeServer) apiKeysSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.apiKeys...)
}
