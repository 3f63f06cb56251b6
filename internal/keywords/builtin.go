package keywords

import (
	"context"

	"github.com/insajin/appeyes/internal/browser"
)

const includeEyesLogDoc = "Send the visual client's log to the run log."

// Register adds the visual-checkpoint keywords backed by l.
func (l *Library) Register(r *Registry) {
	r.Register(Keyword{
		Name: "Open Eyes Session",
		Doc:  "Starts a visual session on the current browser of the browser library, optionally fixing the viewport to width x height, then opens url when given.",
		Args: []Arg{
			Required("url", "Page to open after the session starts; may be empty."),
			Required("appname", "Application under test."),
			Required("testname", "Test name."),
			Optional("apikey", "", "API key; defaults to the key from configuration."),
			Optional("width", "", "Viewport width."),
			Optional("height", "", "Viewport height."),
			Optional("osname", "", "Overrides the reported operating system."),
			Optional("browsername", "", "Overrides the reported browser."),
			Optional("matchlevel", "", "NONE, LAYOUT, LAYOUT2, CONTENT, STRICT or EXACT."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
			Optional("baselinename", "", "Baseline environment name."),
			Optional("batchname", "", "Groups tests sharing the name into one batch."),
			Optional("ApplitoolsJenkinsPlugin", "False", "Take the batch from the CI environment."),
			Optional("branchname", "", "Branch name."),
			Optional("parentbranch", "", "Parent branch name."),
			Optional("matchtimeout", "", "Match timeout in milliseconds."),
			Optional("hidescrollbars", "False", "Hide scrollbars while capturing."),
			Optional("forcefullpage", "False", "Capture whole pages in window checks by default."),
			Optional("serverurl", "", "Visual-testing server; defaults to configuration."),
			Optional("library", "", "Browser library to borrow the driver from."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			viewport, err := a.Size("width", "height")
			if err != nil {
				return nil, err
			}
			timeout, err := a.Millis("matchtimeout")
			if err != nil {
				return nil, err
			}
			return nil, l.OpenEyesSession(ctx, OpenOptions{
				URL:              a.String("url"),
				AppName:          a.String("appname"),
				TestName:         a.String("testname"),
				APIKey:           a.String("apikey"),
				ServerURL:        a.String("serverurl"),
				Viewport:         viewport,
				OSName:           a.String("osname"),
				BrowserName:      a.String("browsername"),
				MatchLevel:       a.String("matchlevel"),
				BaselineName:     a.String("baselinename"),
				BatchName:        a.String("batchname"),
				BatchFromEnv:     a.Bool("ApplitoolsJenkinsPlugin"),
				BranchName:       a.String("branchname"),
				ParentBranchName: a.String("parentbranch"),
				MatchTimeout:     timeout,
				ForceFullPage:    a.Bool("forcefullpage"),
				HideScrollbars:   a.Bool("hidescrollbars"),
				IncludeEyesLog:   a.Bool("includeEyesLog"),
				Library:          a.String("library"),
			})
		},
	})

	r.Register(Keyword{
		Name: "Check Eyes Window",
		Doc:  "Captures the viewport, or the whole page, and matches it with the baseline.",
		Args: []Arg{
			Required("name", "Checkpoint name."),
			Optional("force_full_page_screenshot", "False", "Capture the whole page."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, l.CheckEyesWindow(ctx, a.String("name"), a.Bool("force_full_page_screenshot"), a.Bool("includeEyesLog"))
		},
	})

	r.Register(Keyword{
		Name: "Check Eyes Region",
		Doc:  "Checks the width x height region starting at the location of the element found by XPath.",
		Args: []Arg{
			Required("element", "XPath of the element marking the region's top-left corner."),
			Required("width", "Region width."),
			Required("height", "Region height."),
			Required("name", "Checkpoint name."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			w, err := a.Int("width")
			if err != nil {
				return nil, err
			}
			h, err := a.Int("height")
			if err != nil {
				return nil, err
			}
			return nil, l.CheckEyesRegion(ctx, a.String("element"), w, h, a.String("name"), a.Bool("includeEyesLog"))
		},
	})

	r.Register(Keyword{
		Name: "Check Eyes Region By Element",
		Doc:  "Locates an element by XPATH, ID, CLASS NAME or CSS SELECTOR and checks its region.",
		Args: []Arg{
			Required("selector", "XPATH, ID, CLASS NAME or CSS SELECTOR."),
			Required("value", "Selector value."),
			Required("name", "Checkpoint name."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, l.CheckEyesRegionByElement(ctx, a.String("selector"), a.String("value"), a.String("name"), a.Bool("includeEyesLog"))
		},
	})

	r.Register(Keyword{
		Name: "Check Eyes Region By Selector",
		Doc:  "Checks the region of the element matching the selector; the element is located when the checkpoint is captured.",
		Args: []Arg{
			Required("selector", "CSS SELECTOR, XPATH, ID, LINK TEXT, PARTIAL LINK TEXT, NAME, TAG NAME or CLASS NAME."),
			Required("value", "Selector value."),
			Required("name", "Checkpoint name."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, l.CheckEyesRegionBySelector(ctx, a.String("selector"), a.String("value"), a.String("name"), a.Bool("includeEyesLog"))
		},
	})

	r.Register(Keyword{
		Name: "Select Ignore Region By Selector",
		Doc:  "Excludes the region of the matching element from the next checkpoint.",
		Args: []Arg{
			Required("selector", "Any selector accepted by Check Eyes Region By Selector."),
			Required("value", "Selector value."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, l.SelectIgnoreRegionBySelector(a.String("selector"), a.String("value"))
		},
	})

	r.Register(Keyword{
		Name: "Select Floating Region By Selector",
		Doc:  "Lets the region of the matching element move within the given offsets in the next checkpoint.",
		Args: []Arg{
			Required("selector", "Any selector accepted by Check Eyes Region By Selector."),
			Required("value", "Selector value."),
			Required("left", "Maximum move to the left."),
			Required("up", "Maximum move up."),
			Required("right", "Maximum move to the right."),
			Required("down", "Maximum move down."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			var offsets [4]int
			for i, name := range []string{"left", "up", "right", "down"} {
				n, err := a.Int(name)
				if err != nil {
					return nil, err
				}
				offsets[i] = n
			}
			return nil, l.SelectFloatingRegionBySelector(a.String("selector"), a.String("value"), offsets[0], offsets[1], offsets[2], offsets[3])
		},
	})

	r.Register(Keyword{
		Name: "Compare Image",
		Doc:  "Sends an image file for comparison, named after the file unless imagename is given.",
		Args: []Arg{
			Required("path", "Image file."),
			Optional("imagename", "", "Checkpoint name; defaults to the file name."),
			Optional("ignore_mismatch", "False", "Do not record a mismatch for this image."),
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, l.CompareImage(ctx, a.String("path"), a.String("imagename"), a.Bool("ignore_mismatch"), a.Bool("includeEyesLog"))
		},
	})

	r.Register(Keyword{
		Name: "Close Eyes Session",
		Doc:  "Ends the visual session and returns its results. Fails on differences or a new baseline. Does nothing when no session is open.",
		Args: []Arg{
			Optional("includeEyesLog", "True", includeEyesLogDoc),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			results, err := l.CloseEyesSession(ctx, a.Bool("includeEyesLog"))
			if results == nil {
				return nil, err
			}
			return results, err
		},
	})

	r.Register(Keyword{
		Name: "Eyes Session Is Open",
		Doc:  "Returns True when a visual session is running.",
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return l.EyesSessionIsOpen(), nil
		},
	})
}

// RegisterBrowserKeywords adds the keywords that drive m, the browser
// library the visual keywords borrow from.
func RegisterBrowserKeywords(r *Registry, m *browser.Manager, defaultBrowser string) {
	if defaultBrowser == "" {
		defaultBrowser = "chrome"
	}

	r.Register(Keyword{
		Name: "Open Browser",
		Doc:  "Opens a browser at url and makes it current. Returns its index.",
		Args: []Arg{
			Required("url", "Page to open; may be empty."),
			Optional("browser", defaultBrowser, "Browser name, e.g. gc, ff, headlesschrome."),
			Optional("alias", "", "Name for Switch Browser."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return m.OpenBrowser(ctx, a.String("url"), a.String("browser"), a.String("alias"))
		},
	})

	r.Register(Keyword{
		Name: "Switch Browser",
		Doc:  "Makes the browser with the given index or alias current.",
		Args: []Arg{
			Required("index_or_alias", "Index returned by Open Browser, or its alias."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, m.SwitchBrowser(a.String("index_or_alias"))
		},
	})

	r.Register(Keyword{
		Name: "Go To",
		Doc:  "Navigates the current browser to url.",
		Args: []Arg{
			Required("url", "Page to open."),
		},
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			d, err := m.CurrentBrowser()
			if err != nil {
				return nil, err
			}
			return nil, d.Navigate(ctx, a.String("url"))
		},
	})

	r.Register(Keyword{
		Name: "Close Browser",
		Doc:  "Closes the current browser.",
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, m.CloseBrowser()
		},
	})

	r.Register(Keyword{
		Name: "Close All Browsers",
		Doc:  "Closes every open browser.",
		Handler: func(ctx context.Context, a Args) (interface{}, error) {
			return nil, m.CloseAllBrowsers()
		},
	})
}
