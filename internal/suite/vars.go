package suite

import (
	"fmt"
	"os"
	"strings"
)

// Variables is a scope of suite variables. Lookups fall back to the
// environment.
type Variables map[string]string

// assignTarget recognises "${name}=" and "${name} =".
func assignTarget(item string) (string, bool) {
	item = strings.TrimSpace(item)
	if !strings.HasSuffix(item, "=") {
		return "", false
	}
	item = strings.TrimSpace(strings.TrimSuffix(item, "="))
	if !strings.HasPrefix(item, "${") || !strings.HasSuffix(item, "}") {
		return "", false
	}
	name := strings.TrimSpace(item[2 : len(item)-1])
	if name == "" || strings.ContainsAny(name, "${}") {
		return "", false
	}
	return name, true
}

func (v Variables) lookup(name string) (string, bool) {
	if val, ok := v[name]; ok {
		return val, true
	}
	return os.LookupEnv(name)
}

// Expand replaces every ${name} in s. Unknown variables are an error.
func (v Variables) Expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return "", fmt.Errorf("unclosed variable in %q", s)
		}
		end += start

		name := rest[start+2 : end]
		val, ok := v.lookup(name)
		if !ok {
			return "", fmt.Errorf("variable '${%s}' not found", name)
		}
		b.WriteString(rest[:start])
		b.WriteString(val)
		rest = rest[end+1:]
	}
	return b.String(), nil
}

// ExpandAll expands every item of args.
func (v Variables) ExpandAll(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		expanded, err := v.Expand(a)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

func (v Variables) clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// formatValue renders a keyword's return value for assignment.
func formatValue(val interface{}) string {
	switch x := val.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// resolveVariables expands suite variables that refer to each other or to
// the environment.
func resolveVariables(raw map[string]string) (Variables, error) {
	resolved := make(Variables, len(raw))
	visiting := make(map[string]bool)

	var resolve func(name string) (string, error)
	resolve = func(name string) (string, error) {
		if val, ok := resolved[name]; ok {
			return val, nil
		}
		if visiting[name] {
			return "", fmt.Errorf("variable '${%s}' refers to itself", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		deps := make(Variables)
		for _, ref := range references(raw[name]) {
			if _, ok := raw[ref]; !ok {
				continue
			}
			val, err := resolve(ref)
			if err != nil {
				return "", err
			}
			deps[ref] = val
		}
		val, err := deps.Expand(raw[name])
		if err != nil {
			return "", fmt.Errorf("variable %s: %w", name, err)
		}
		resolved[name] = val
		return val, nil
	}

	for name := range raw {
		if _, err := resolve(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// references lists the variable names used in s.
func references(s string) []string {
	var names []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return names
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			return names
		}
		names = append(names, s[start+2:start+end])
		s = s[start+end+1:]
	}
}
