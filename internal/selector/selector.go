// Package selector parses element selector kinds used by the region keywords.
package selector

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// Kind is a closed enumeration of element location strategies.
type Kind int

const (
	CSSSelector Kind = iota + 1
	XPath
	ID
	LinkText
	PartialLinkText
	Name
	TagName
	ClassName
)

var kindNames = map[Kind]string{
	CSSSelector:     "CSS SELECTOR",
	XPath:           "XPATH",
	ID:              "ID",
	LinkText:        "LINK TEXT",
	PartialLinkText: "PARTIAL LINK TEXT",
	Name:            "NAME",
	TagName:         "TAG NAME",
	ClassName:       "CLASS NAME",
}

// WebDriver locator strategies for each kind.
var kindBy = map[Kind]string{
	CSSSelector:     selenium.ByCSSSelector,
	XPath:           selenium.ByXPATH,
	ID:              selenium.ByID,
	LinkText:        selenium.ByLinkText,
	PartialLinkText: selenium.ByPartialLinkText,
	Name:            selenium.ByName,
	TagName:         selenium.ByTagName,
	ClassName:       selenium.ByClassName,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// By returns the WebDriver locator strategy for the kind.
func (k Kind) By() string {
	return kindBy[k]
}

// Vocabulary is an ordered set of accepted kinds.
type Vocabulary []Kind

// ElementKinds are the kinds accepted when the element is resolved eagerly
// through the driver.
var ElementKinds = Vocabulary{XPath, ID, ClassName, CSSSelector}

// LocatorKinds are the kinds accepted when resolution is deferred to the
// visual-testing client.
var LocatorKinds = Vocabulary{CSSSelector, XPath, ID, LinkText, PartialLinkText, Name, TagName, ClassName}

// Contains reports whether k is part of the vocabulary.
func (v Vocabulary) Contains(k Kind) bool {
	for _, c := range v {
		if c == k {
			return true
		}
	}
	return false
}

func (v Vocabulary) String() string {
	names := make([]string, len(v))
	for i, k := range v {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// InvalidSelectorError is returned for a selector string outside the accepted vocabulary.
type InvalidSelectorError struct {
	Value    string
	Accepted Vocabulary
}

func (e *InvalidSelectorError) Error() string {
	return "Please select a valid selector: " + e.Accepted.String()
}

var lookup = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// Parse resolves s against vocab. Matching is case-insensitive, and
// underscores are accepted in place of spaces.
func Parse(s string, vocab Vocabulary) (Kind, error) {
	key := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	key = strings.Join(strings.Fields(key), " ")
	k, ok := lookup[key]
	if !ok || !vocab.Contains(k) {
		return 0, &InvalidSelectorError{Value: s, Accepted: vocab}
	}
	return k, nil
}
