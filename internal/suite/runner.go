package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Status is the outcome of a test.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// KeywordRunner runs a keyword by name with string arguments.
type KeywordRunner interface {
	Run(ctx context.Context, name string, args []string) (interface{}, error)
}

// TestResult is the outcome of one test.
type TestResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Err      error         `json:"-"`
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a suite run.
type Result struct {
	Suite     string        `json:"suite"`
	Path      string        `json:"path,omitempty"`
	Tests     []TestResult  `json:"tests"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	// SetupErr and TeardownErr are suite-level failures.
	SetupErr    error `json:"-"`
	TeardownErr error `json:"-"`
}

// Passed returns the number of passing tests.
func (r *Result) Passed() int {
	n := 0
	for _, t := range r.Tests {
		if t.Status == StatusPass {
			n++
		}
	}
	return n
}

// Failed returns the number of failing tests.
func (r *Result) Failed() int {
	return len(r.Tests) - r.Passed()
}

// OK reports whether every test passed.
func (r *Result) OK() bool {
	return r.Failed() == 0
}

// StepError identifies the step that failed.
type StepError struct {
	Keyword string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Keyword, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes suites.
type Runner struct {
	keywords KeywordRunner
	logger   zerolog.Logger
}

// NewRunner creates a Runner that dispatches steps to keywords.
func NewRunner(keywords KeywordRunner, logger zerolog.Logger) *Runner {
	return &Runner{
		keywords: keywords,
		logger:   logger.With().Str("component", "suite").Logger(),
	}
}

// Run executes s. Setup failures fail the affected tests without running
// their bodies; teardowns always run, even after cancellation.
func (r *Runner) Run(ctx context.Context, s *Suite) *Result {
	res := &Result{Suite: s.Name, Path: s.Path, StartedAt: time.Now()}
	log := r.logger.With().Str("suite", s.Name).Logger()
	log.Info().Int("tests", len(s.Tests)).Msg("suite started")

	vars, err := resolveVariables(s.Variables)
	if err != nil {
		res.SetupErr = err
		vars = Variables{}
	} else if _, err := r.runSteps(ctx, s.Setup, vars, false); err != nil {
		res.SetupErr = err
	}

	for _, t := range s.Tests {
		switch {
		case res.SetupErr != nil:
			res.Tests = append(res.Tests, TestResult{
				Name:    t.Name,
				Status:  StatusFail,
				Err:     res.SetupErr,
				Message: "Parent suite setup failed: " + res.SetupErr.Error(),
			})
		case ctx.Err() != nil:
			res.Tests = append(res.Tests, TestResult{
				Name:    t.Name,
				Status:  StatusFail,
				Err:     ctx.Err(),
				Message: "Test execution stopped: " + ctx.Err().Error(),
			})
		default:
			res.Tests = append(res.Tests, r.runTest(ctx, t, vars.clone(), log))
		}
	}

	if _, err := r.runSteps(context.WithoutCancel(ctx), s.Teardown, vars, true); err != nil {
		res.TeardownErr = err
		for i := range res.Tests {
			res.Tests[i].Status = StatusFail
			res.Tests[i].Message = appendMessage(res.Tests[i].Message, "Parent suite teardown failed: "+err.Error())
			if res.Tests[i].Err == nil {
				res.Tests[i].Err = err
			}
		}
	}

	res.Duration = time.Since(res.StartedAt)
	log.Info().
		Int("passed", res.Passed()).
		Int("failed", res.Failed()).
		Dur("duration", res.Duration).
		Msg("suite finished")
	return res
}

func (r *Runner) runTest(ctx context.Context, t Test, vars Variables, log zerolog.Logger) TestResult {
	start := time.Now()
	tr := TestResult{Name: t.Name, Status: StatusPass}
	log = log.With().Str("test", t.Name).Logger()
	log.Debug().Msg("test started")

	n, err := r.runSteps(ctx, t.Setup, vars, false)
	tr.Steps += n
	if err != nil {
		tr.Status, tr.Err = StatusFail, err
		tr.Message = "Setup failed: " + err.Error()
	} else {
		n, err = r.runSteps(ctx, t.Steps, vars, false)
		tr.Steps += n
		if err != nil {
			tr.Status, tr.Err, tr.Message = StatusFail, err, err.Error()
		}
	}

	n, err = r.runSteps(context.WithoutCancel(ctx), t.Teardown, vars, true)
	tr.Steps += n
	if err != nil {
		if tr.Err == nil {
			tr.Err = err
		}
		tr.Status = StatusFail
		tr.Message = appendMessage(tr.Message, "Teardown failed: "+err.Error())
	}

	tr.Duration = time.Since(start)
	event := log.Info()
	if tr.Status == StatusFail {
		event = log.Warn().Str("message", tr.Message)
	}
	event.Str("status", string(tr.Status)).Dur("duration", tr.Duration).Msg("test finished")
	return tr
}

// runSteps runs steps in order. Without continueOnFailure it stops at the
// first failure; with it every step runs and the failures are joined.
func (r *Runner) runSteps(ctx context.Context, steps []Step, vars Variables, continueOnFailure bool) (int, error) {
	var errs []error
	ran := 0
	for _, st := range steps {
		if !continueOnFailure && ctx.Err() != nil {
			return ran, ctx.Err()
		}
		ran++
		if err := r.runStep(ctx, st, vars); err != nil {
			if !continueOnFailure {
				return ran, err
			}
			errs = append(errs, err)
		}
	}
	return ran, errors.Join(errs...)
}

func (r *Runner) runStep(ctx context.Context, st Step, vars Variables) error {
	assign, keyword, raw := st.split()
	keyword, err := vars.Expand(keyword)
	if err != nil {
		return &StepError{Keyword: keyword, Err: err}
	}
	args, err := vars.ExpandAll(raw)
	if err != nil {
		return &StepError{Keyword: keyword, Err: err}
	}

	val, err := r.keywords.Run(ctx, keyword, args)
	if err != nil {
		return &StepError{Keyword: keyword, Err: err}
	}
	if assign != "" {
		vars[assign] = formatValue(val)
	}
	return nil
}

func appendMessage(msg, more string) string {
	if msg == "" {
		return more
	}
	return msg + "\n\nAlso " + more
}
