package keywords

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RegisterStandardKeywords adds the general-purpose keywords suites use
// around the visual checkpoints.
func RegisterStandardKeywords(r *Registry, logger zerolog.Logger) {
	logger = logger.With().Str("component", "suite-log").Logger()

	r.Register(Keyword{
		Name: "Log",
		Doc:  "Writes message to the run log.",
		Args: []Arg{
			Required("message", "Message to log."),
			Optional("level", "INFO", "DEBUG, INFO, WARN or ERROR."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			level := strings.ToUpper(a.String("level"))
			switch level {
			case "DEBUG":
				logger.Debug().Msg(a.String("message"))
			case "INFO":
				logger.Info().Msg(a.String("message"))
			case "WARN":
				logger.Warn().Msg(a.String("message"))
			case "ERROR":
				logger.Error().Msg(a.String("message"))
			default:
				return nil, &ArgumentError{Keyword: "Log", Argument: "level", Value: level, Err: fmt.Errorf("unknown log level")}
			}
			return nil, nil
		},
	})

	r.Register(Keyword{
		Name: "Set Variable",
		Doc:  "Returns value, for assigning to a variable.",
		Args: []Arg{
			Required("value", "Value to return."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return a.String("value"), nil
		},
	})

	r.Register(Keyword{
		Name: "Should Be Equal",
		Doc:  "Fails unless first and second are equal strings.",
		Args: []Arg{
			Required("first", "Actual value."),
			Required("second", "Expected value."),
			Optional("msg", "", "Failure message."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			if a.String("first") == a.String("second") {
				return nil, nil
			}
			if a.IsSet("msg") {
				return nil, fmt.Errorf("%s", a.String("msg"))
			}
			return nil, fmt.Errorf("%s != %s", a.String("first"), a.String("second"))
		},
	})

	r.Register(Keyword{
		Name: "Should Be True",
		Doc:  "Fails unless condition is a true value: anything except an empty string, FALSE, NO, OFF, 0 or NONE.",
		Args: []Arg{
			Required("condition", "Value to test."),
			Optional("msg", "", "Failure message."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			if IsTruthy(a.String("condition")) {
				return nil, nil
			}
			if a.IsSet("msg") {
				return nil, fmt.Errorf("%s", a.String("msg"))
			}
			return nil, fmt.Errorf("'%s' should be true", a.String("condition"))
		},
	})

	r.Register(Keyword{
		Name: "Sleep",
		Doc:  "Pauses for a Go duration (\"1.5s\") or a number of seconds.",
		Args: []Arg{
			Required("time", "Duration to wait."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			d, err := parseSleep(a.String("time"))
			if err != nil {
				return nil, &ArgumentError{Keyword: "Sleep", Argument: "time", Value: a.String("time"), Err: err}
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timer.C:
				return nil, nil
			}
		},
	})
}

func parseSleep(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
