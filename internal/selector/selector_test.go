package selector

import (
	"errors"
	"testing"

	"github.com/tebeka/selenium"
)

func TestParse_LocatorKinds(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
		by    string
	}{
		{"CSS SELECTOR", CSSSelector, selenium.ByCSSSelector},
		{"css selector", CSSSelector, selenium.ByCSSSelector},
		{"xpath", XPath, selenium.ByXPATH},
		{"XPath", XPath, selenium.ByXPATH},
		{"id", ID, selenium.ByID},
		{"Link Text", LinkText, selenium.ByLinkText},
		{"partial link text", PartialLinkText, selenium.ByPartialLinkText},
		{"NAME", Name, selenium.ByName},
		{"tag_name", TagName, selenium.ByTagName},
		{"  class   name ", ClassName, selenium.ByClassName},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input, LocatorKinds)
			if err != nil {
				t.Fatalf("Parse(%q) = error %v; want nil", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v; want %v", tt.input, got, tt.want)
			}
			if got.By() != tt.by {
				t.Errorf("By() = %q; want %q", got.By(), tt.by)
			}
		})
	}
}

func TestParse_ElementKinds(t *testing.T) {
	for _, input := range []string{"XPATH", "id", "Class Name", "css selector"} {
		if _, err := Parse(input, ElementKinds); err != nil {
			t.Errorf("Parse(%q, ElementKinds) = error %v; want nil", input, err)
		}
	}

	// LINK TEXT is only accepted by the lazy vocabulary.
	_, err := Parse("LINK TEXT", ElementKinds)
	var invalid *InvalidSelectorError
	if !errors.As(err, &invalid) {
		t.Fatalf("Parse(LINK TEXT, ElementKinds) = %v; want InvalidSelectorError", err)
	}
	want := "Please select a valid selector: XPATH, ID, CLASS NAME, CSS SELECTOR"
	if invalid.Error() != want {
		t.Errorf("Error() = %q; want %q", invalid.Error(), want)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "JQUERY", "css", "link"} {
		_, err := Parse(input, LocatorKinds)
		if err == nil {
			t.Errorf("Parse(%q) = nil; want error", input)
			continue
		}
		want := "Please select a valid selector: CSS SELECTOR, XPATH, ID, LINK TEXT, PARTIAL LINK TEXT, NAME, TAG NAME, CLASS NAME"
		if err.Error() != want {
			t.Errorf("Parse(%q) error = %q; want %q", input, err.Error(), want)
		}
	}
}
