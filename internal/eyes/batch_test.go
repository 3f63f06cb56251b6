package eyes

import (
	"strings"
	"testing"
)

func TestParseMatchLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchLevel
		wantErr bool
	}{
		{in: "", want: MatchStrict},
		{in: "strict", want: MatchStrict},
		{in: "LAYOUT2", want: MatchLayout2},
		{in: " Content ", want: MatchContent},
		{in: "MatchLevel.EXACT", want: MatchExact},
		{in: "none", want: MatchNone},
		{in: "fuzzy", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMatchLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMatchLevel(%q) error = %v; wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMatchLevel(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestBatchRegistry_SharedByName(t *testing.T) {
	r := NewBatchRegistry("", "")

	a := r.Get("Smoke", false)
	b := r.Get("Smoke", false)
	c := r.Get("Regression", false)

	if a == nil || a != b {
		t.Error("same batch name should return the same descriptor")
	}
	if a == c || a.ID == c.ID {
		t.Error("different batch names should get different descriptors")
	}
	if a.Name != "Smoke" || a.StartedAt.IsZero() {
		t.Errorf("batch = %+v; want name Smoke with a start time", a)
	}
	if r.Get("", false) != nil {
		t.Error("Get with no name and no env flag should return nil")
	}
}

func TestBatchRegistry_FromEnv(t *testing.T) {
	t.Setenv("CI_BATCH_ID", "batch-42")
	t.Setenv("CI_JOB", "nightly-ui")
	r := NewBatchRegistry("CI_BATCH_ID", "CI_JOB")

	b := r.Get("", true)
	if b == nil {
		t.Fatal("Get(\"\", true) = nil; want env batch")
	}
	if b.ID != "batch-42" || b.Name != "nightly-ui" {
		t.Errorf("batch = %+v; want batch-42/nightly-ui", b)
	}
	if again := r.Get("", true); again != b {
		t.Error("env batch should be reused")
	}
	if plain := r.Get("Smoke", false); plain.ID == "batch-42" {
		t.Errorf("batch without env flag = %+v; want a generated ID", plain)
	}
}

func TestBatchRegistry_FromEnvWithName(t *testing.T) {
	t.Setenv(DefaultBatchIDEnv, "ci-batch-77")
	t.Setenv(DefaultBatchNameEnv, "nightly-ui")
	r := NewBatchRegistry("", "")

	b := r.Get("Smoke", true)
	if b == nil {
		t.Fatal("Get(\"Smoke\", true) = nil; want env batch")
	}
	if b.ID != "ci-batch-77" || b.Name != "Smoke" {
		t.Errorf("batch = %+v; want ci-batch-77/Smoke", b)
	}
	if again := r.Get("Smoke", true); again != b {
		t.Error("named env batch should be reused")
	}
}

func TestBatchRegistry_FromEnv_Unset(t *testing.T) {
	t.Setenv(DefaultBatchIDEnv, "")
	r := NewBatchRegistry("", "")
	if b := r.Get("", true); b != nil {
		t.Errorf("Get(\"\", true) without env = %+v; want nil", b)
	}
}

func TestErrorsMessages(t *testing.T) {
	results := &TestResults{Mismatches: 2, Missing: 1, URL: "https://eyes.test/r/9"}

	failed := (&TestFailedError{Test: "Home", App: "NaviNet", Results: results}).Error()
	if !strings.Contains(failed, "2 mismatches") || !strings.Contains(failed, results.URL) {
		t.Errorf("TestFailedError = %q", failed)
	}
	newTest := (&NewTestError{Test: "Home", App: "NaviNet", Results: results}).Error()
	if !strings.Contains(newTest, "new test") || !strings.Contains(newTest, results.URL) {
		t.Errorf("NewTestError = %q", newTest)
	}
}
