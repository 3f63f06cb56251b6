package keywords

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/insajin/appeyes/internal/geometry"
)

// Arg declares one keyword argument.
type Arg struct {
	Name     string
	Default  string
	Optional bool
	Doc      string
}

// Required declares a mandatory argument.
func Required(name, doc string) Arg {
	return Arg{Name: name, Doc: doc}
}

// Optional declares an argument with a default.
func Optional(name, def, doc string) Arg {
	return Arg{Name: name, Default: def, Optional: true, Doc: doc}
}

func (a Arg) String() string {
	if !a.Optional {
		return a.Name
	}
	return a.Name + "=" + a.Default
}

// Args are bound keyword arguments.
type Args struct {
	keyword string
	values  map[string]string
	given   map[string]bool
}

// String returns the argument value or its default.
func (a Args) String(name string) string {
	return a.values[name]
}

// IsSet reports whether the caller supplied the argument.
func (a Args) IsSet(name string) bool {
	return a.given[name] && a.values[name] != ""
}

// Int converts the argument to an integer.
func (a Args) Int(name string) (int, error) {
	v := strings.TrimSpace(a.values[name])
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ArgumentError{Keyword: a.keyword, Argument: name, Value: v, Err: errors.New("not an integer")}
	}
	return n, nil
}

// Bool converts the argument with Robot Framework's truth rules.
func (a Args) Bool(name string) bool {
	return IsTruthy(a.values[name])
}

// Millis converts an integer millisecond argument; empty means zero.
func (a Args) Millis(name string) (time.Duration, error) {
	if !a.IsSet(name) {
		return 0, nil
	}
	n, err := a.Int(name)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

// Size reads a width/height pair. Both empty means no size.
func (a Args) Size(width, height string) (*geometry.Size, error) {
	if !a.IsSet(width) && !a.IsSet(height) {
		return nil, nil
	}
	w, err := a.Int(width)
	if err != nil {
		return nil, err
	}
	h, err := a.Int(height)
	if err != nil {
		return nil, err
	}
	return &geometry.Size{Width: w, Height: h}, nil
}

// IsTruthy follows Robot Framework: empty strings and FALSE, NO, OFF, 0
// and NONE in any case are false; everything else is true.
func IsTruthy(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FALSE", "NO", "OFF", "0", "NONE":
		return false
	}
	return true
}

// NormalizeName folds case and drops spaces and underscores, so
// "Check Eyes Window", "check_eyes_window" and "CheckEyesWindow" match.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == ' ' || r == '_' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// bind maps positional and name=value arguments onto the declaration.
// A name=value item whose name is not a declared argument is positional.
func bind(kw *Keyword, raw []string) (Args, error) {
	args := Args{keyword: kw.Name, values: make(map[string]string), given: make(map[string]bool)}
	byName := make(map[string]Arg, len(kw.Args))
	for _, a := range kw.Args {
		byName[NormalizeName(a.Name)] = a
	}

	pos := 0
	named := false
	for _, item := range raw {
		if name, value, ok := strings.Cut(item, "="); ok {
			if a, declared := byName[NormalizeName(name)]; declared {
				if args.given[a.Name] {
					return Args{}, &ArgumentError{Keyword: kw.Name, Argument: a.Name, Err: errors.New("given more than once")}
				}
				args.values[a.Name] = value
				args.given[a.Name] = true
				named = true
				continue
			}
		}
		if named {
			return Args{}, &ArgumentError{Keyword: kw.Name, Argument: item, Err: errors.New("positional argument after named arguments")}
		}
		if pos >= len(kw.Args) {
			return Args{}, &ArgumentError{Keyword: kw.Name, Argument: item, Err: fmt.Errorf("expected at most %d arguments, got %d", len(kw.Args), len(raw))}
		}
		a := kw.Args[pos]
		args.values[a.Name] = item
		args.given[a.Name] = true
		pos++
	}

	return fill(kw, args)
}

// bindNamed maps arguments given by name only.
func bindNamed(kw *Keyword, named map[string]string) (Args, error) {
	args := Args{keyword: kw.Name, values: make(map[string]string), given: make(map[string]bool)}
	byName := make(map[string]Arg, len(kw.Args))
	for _, a := range kw.Args {
		byName[NormalizeName(a.Name)] = a
	}
	for name, value := range named {
		a, ok := byName[NormalizeName(name)]
		if !ok {
			return Args{}, &ArgumentError{Keyword: kw.Name, Argument: name, Err: errors.New("unknown argument")}
		}
		args.values[a.Name] = value
		args.given[a.Name] = true
	}
	return fill(kw, args)
}

func fill(kw *Keyword, args Args) (Args, error) {
	for _, a := range kw.Args {
		if args.given[a.Name] {
			continue
		}
		if !a.Optional {
			return Args{}, &ArgumentError{Keyword: kw.Name, Argument: a.Name, Err: errors.New("missing value")}
		}
		args.values[a.Name] = a.Default
	}
	return args, nil
}
