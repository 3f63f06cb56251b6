package eyes

import (
	"fmt"
	"strings"
)

// MatchLevel is the comparison strictness applied by the service.
type MatchLevel string

const (
	MatchNone    MatchLevel = "None"
	MatchLayout  MatchLevel = "Layout"
	MatchLayout2 MatchLevel = "Layout2"
	MatchContent MatchLevel = "Content"
	MatchStrict  MatchLevel = "Strict"
	MatchExact   MatchLevel = "Exact"
)

var matchLevels = map[string]MatchLevel{
	"NONE":    MatchNone,
	"LAYOUT":  MatchLayout,
	"LAYOUT2": MatchLayout2,
	"CONTENT": MatchContent,
	"STRICT":  MatchStrict,
	"EXACT":   MatchExact,
}

// ParseMatchLevel accepts the level name in any case, optionally prefixed
// with "MatchLevel.". Empty input yields MatchStrict.
func ParseMatchLevel(s string) (MatchLevel, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return MatchStrict, nil
	}
	key = strings.TrimPrefix(key, "MATCHLEVEL.")
	level, ok := matchLevels[key]
	if !ok {
		return "", fmt.Errorf("invalid match level %q: use one of NONE, LAYOUT, LAYOUT2, CONTENT, STRICT, EXACT", s)
	}
	return level, nil
}
