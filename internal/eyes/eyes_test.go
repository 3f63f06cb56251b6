package eyes

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/insajin/appeyes/internal/browser/browsertest"
	"github.com/insajin/appeyes/internal/config"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/metrics"
	"github.com/insajin/appeyes/internal/selector"
)

func newTestEyes(t *testing.T, srv *fakeServer, mutate func(*Configuration)) (*Eyes, *metrics.Metrics) {
	t.Helper()
	cfg := Configuration{
		APIKey:         testAPIKey,
		ServerURL:      srv.URL(),
		RequestTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := metrics.NewMetrics()
	return New(cfg, WithMetrics(m)), m
}

func decodeShot(t *testing.T, data MatchWindowData) geometry.Size {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(data.AppOutput.Screenshot64)
	if err != nil {
		t.Fatalf("screenshot64 is not base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("screenshot is not a PNG: %v", err)
	}
	return geometry.Size{Width: cfg.Width, Height: cfg.Height}
}

// 1024x768로 열고 창을 체크한 뒤 닫으면 세션 시작 요청에 설정한 뷰포트가 기록되어야 합니다.
func TestEyes_OpenCheckClose_RecordsViewport(t *testing.T) {
	srv := newFakeServer(t)
	e, m := newTestEyes(t, srv, nil)
	d := browsertest.NewFakeDriver()
	ctx := context.Background()

	viewport := geometry.Size{Width: 1024, Height: 768}
	if err := e.Open(ctx, d, "NaviNet", "Home Page", &viewport); err != nil {
		t.Fatalf("Open() = error %v; want nil", err)
	}
	if !e.IsOpen() {
		t.Fatal("IsOpen() = false after Open; want true")
	}

	ok, err := e.CheckWindow(ctx, "Home")
	if err != nil {
		t.Fatalf("CheckWindow() = error %v; want nil", err)
	}
	if !ok {
		t.Error("CheckWindow() = false; want true")
	}

	results, err := e.Close(ctx)
	if err != nil {
		t.Fatalf("Close() = error %v; want nil", err)
	}
	if !results.IsPassed() {
		t.Errorf("results = %+v; want passed", results)
	}
	if e.IsOpen() {
		t.Error("IsOpen() = true after Close; want false")
	}

	starts, matches, stops := srv.snapshot()
	if len(starts) != 1 {
		t.Fatalf("start requests = %d; want 1", len(starts))
	}
	if got := starts[0].Environment.DisplaySize; got != viewport {
		t.Errorf("recorded viewport = %v; want %v", got, viewport)
	}
	if len(d.ViewportSets) != 1 || d.ViewportSets[0] != viewport {
		t.Errorf("driver viewport sets = %v; want [%v]", d.ViewportSets, viewport)
	}
	if len(matches) != 1 {
		t.Fatalf("match requests = %d; want 1", len(matches))
	}
	if got := decodeShot(t, matches[0]); got != viewport {
		t.Errorf("screenshot size = %v; want %v", got, viewport)
	}
	if matches[0].Tag != "Home" || matches[0].AppOutput.Title != "Example" {
		t.Errorf("tag/title = %q/%q; want Home/Example", matches[0].Tag, matches[0].AppOutput.Title)
	}
	if len(stops) != 1 || stops[0].Get("aborted") != "false" {
		t.Errorf("stop requests = %v; want one non-aborted stop", stops)
	}
	if m.SessionsOpened.Load() != 1 || m.SessionsClosed.Load() != 1 || m.ChecksSubmitted.Load() != 1 {
		t.Errorf("metrics = %+v; want 1 opened, 1 closed, 1 check", m.Snapshot())
	}
}

func TestEyes_NotOpen(t *testing.T) {
	srv := newFakeServer(t)
	e, _ := newTestEyes(t, srv, nil)
	ctx := context.Background()

	if _, err := e.CheckWindow(ctx, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("CheckWindow() = %v; want ErrNotOpen", err)
	}
	if _, err := e.CheckRegion(ctx, geometry.Region{Width: 1, Height: 1}, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("CheckRegion() = %v; want ErrNotOpen", err)
	}
	if _, err := e.MatchImage(ctx, []byte("png"), "x", false); !errors.Is(err, ErrNotOpen) {
		t.Errorf("MatchImage() = %v; want ErrNotOpen", err)
	}
	if err := e.AddIgnoreRegionBySelector(selector.ID, "x"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("AddIgnoreRegionBySelector() = %v; want ErrNotOpen", err)
	}
	if _, err := e.Close(ctx); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Close() = %v; want ErrNotOpen", err)
	}
	results, err := e.AbortIfNotClosed(ctx)
	if err != nil || results != nil {
		t.Errorf("AbortIfNotClosed() = %v, %v; want nil, nil", results, err)
	}
}

func TestEyes_Open_Errors(t *testing.T) {
	srv := newFakeServer(t)
	ctx := context.Background()

	e, _ := newTestEyes(t, srv, func(c *Configuration) { c.APIKey = "" })
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err == nil {
		t.Error("Open() without API key = nil error; want error")
	}

	e, _ = newTestEyes(t, srv, nil)
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err != nil {
		t.Fatal(err)
	}
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open() = %v; want ErrAlreadyOpen", err)
	}
}

func TestEyes_Open_SessionSettings(t *testing.T) {
	srv := newFakeServer(t)
	batch := NewBatchInfo("nightly")
	e, _ := newTestEyes(t, srv, func(c *Configuration) {
		c.HostOS = "Windows 10"
		c.HostApp = "Chrome"
		c.MatchLevel = MatchLayout
		c.BaselineName = "desktop"
		c.BranchName = "feature"
		c.ParentBranchName = "default"
		c.Batch = batch
	})
	d := browsertest.NewFakeDriver()

	if err := e.Open(context.Background(), d, "app", "test", nil); err != nil {
		t.Fatal(err)
	}

	starts, _, _ := srv.snapshot()
	info := starts[0]
	if info.Environment.OS != "Windows 10" || info.Environment.HostingApp != "Chrome" {
		t.Errorf("environment = %+v; want OS/app overrides", info.Environment)
	}
	if info.Environment.DisplaySize != d.Viewport {
		t.Errorf("display size = %v; want current viewport %v", info.Environment.DisplaySize, d.Viewport)
	}
	if info.Environment.Inferred != "useragent:"+d.Agent {
		t.Errorf("inferred = %q; want user agent", info.Environment.Inferred)
	}
	if info.DefaultMatchSettings.MatchLevel != MatchLayout {
		t.Errorf("match level = %v; want Layout", info.DefaultMatchSettings.MatchLevel)
	}
	if info.BaselineEnvName != "desktop" || info.BranchName != "feature" || info.ParentBranchName != "default" {
		t.Errorf("baseline/branch = %q/%q/%q", info.BaselineEnvName, info.BranchName, info.ParentBranchName)
	}
	if info.BatchInfo == nil || info.BatchInfo.ID != batch.ID {
		t.Errorf("batch = %+v; want %+v", info.BatchInfo, batch)
	}
	if len(d.ViewportSets) != 0 {
		t.Errorf("viewport was changed without a requested size: %v", d.ViewportSets)
	}
}

func TestEyes_CheckRegion_Crops(t *testing.T) {
	srv := newFakeServer(t)
	e, _ := newTestEyes(t, srv, nil)
	d := browsertest.NewFakeDriver()
	ctx := context.Background()
	if err := e.Open(ctx, d, "app", "test", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := e.CheckRegion(ctx, geometry.Region{Left: 10, Top: 20, Width: 300, Height: 40}, "nav"); err != nil {
		t.Fatalf("CheckRegion() = error %v; want nil", err)
	}
	// 뷰포트 밖의 영역은 전체 페이지 스크린샷에서 잘라냅니다.
	if _, err := e.CheckRegion(ctx, geometry.Region{Left: 0, Top: 1500, Width: 200, Height: 100}, "footer"); err != nil {
		t.Fatalf("CheckRegion(footer) = error %v; want nil", err)
	}

	_, matches, _ := srv.snapshot()
	if got := decodeShot(t, matches[0]); got != (geometry.Size{Width: 300, Height: 40}) {
		t.Errorf("nav screenshot = %v; want 300x40", got)
	}
	if got := decodeShot(t, matches[1]); got != (geometry.Size{Width: 200, Height: 100}) {
		t.Errorf("footer screenshot = %v; want 200x100", got)
	}
	if d.FullShots != 1 {
		t.Errorf("full page screenshots = %d; want 1", d.FullShots)
	}

	if _, err := e.CheckRegion(ctx, geometry.Region{Left: 5000, Top: 5000, Width: 10, Height: 10}, "gone"); err == nil {
		t.Error("CheckRegion() outside the page = nil error; want error")
	}
}

func TestEyes_CheckRegionBySelector_WithPendingRegions(t *testing.T) {
	srv := newFakeServer(t)
	e, _ := newTestEyes(t, srv, nil)
	d := browsertest.NewFakeDriver()
	ctx := context.Background()

	d.AddElement(selector.CSSSelector, "#main", geometry.Point{X: 100, Y: 50}, geometry.Size{Width: 300, Height: 100})
	d.AddElement(selector.ID, "clock", geometry.Point{X: 110, Y: 70}, geometry.Size{Width: 50, Height: 10})
	d.AddElement(selector.ClassName, "ad", geometry.Point{X: 200, Y: 60}, geometry.Size{Width: 40, Height: 30})

	if err := e.Open(ctx, d, "app", "test", nil); err != nil {
		t.Fatal(err)
	}
	if err := e.AddIgnoreRegionBySelector(selector.ID, "clock"); err != nil {
		t.Fatal(err)
	}
	if err := e.AddFloatingRegionBySelector(selector.ClassName, "ad", 1, 2, 3, 4); err != nil {
		t.Fatal(err)
	}
	lookups := d.Lookups

	if _, err := e.CheckRegionBySelector(ctx, selector.CSSSelector, "#main", "main"); err != nil {
		t.Fatalf("CheckRegionBySelector() = error %v; want nil", err)
	}
	if d.Lookups != lookups+3 {
		t.Errorf("element lookups during check = %d; want 3", d.Lookups-lookups)
	}
	if _, err := e.CheckWindow(ctx, "window"); err != nil {
		t.Fatal(err)
	}

	_, matches, _ := srv.snapshot()
	settings := matches[0].Options.ImageMatchSettings
	wantIgnore := []geometry.Region{{Left: 10, Top: 20, Width: 50, Height: 10}}
	if len(settings.Ignore) != 1 || settings.Ignore[0] != wantIgnore[0] {
		t.Errorf("ignore = %v; want %v", settings.Ignore, wantIgnore)
	}
	wantFloat := geometry.FloatingRegion{
		Region:   geometry.Region{Left: 100, Top: 10, Width: 40, Height: 30},
		MaxLeft:  1,
		MaxUp:    2,
		MaxRight: 3,
		MaxDown:  4,
	}
	if len(settings.Floating) != 1 || settings.Floating[0] != wantFloat {
		t.Errorf("floating = %+v; want %+v", settings.Floating, wantFloat)
	}

	next := matches[1].Options.ImageMatchSettings
	if len(next.Ignore) != 0 || len(next.Floating) != 0 {
		t.Errorf("regions leaked into the next checkpoint: %+v", next)
	}
}

func TestEyes_CheckRegionBySelector_NotFound(t *testing.T) {
	srv := newFakeServer(t)
	e, _ := newTestEyes(t, srv, nil)
	ctx := context.Background()
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CheckRegionBySelector(ctx, selector.XPath, "//nav", "nav"); err == nil {
		t.Error("CheckRegionBySelector() for a missing element = nil error; want error")
	}
	if _, matches, _ := srv.snapshot(); len(matches) != 0 {
		t.Errorf("match requests = %d; want 0", len(matches))
	}
}

func TestEyes_MatchTimeout(t *testing.T) {
	tests := []struct {
		name         string
		verdicts     []bool
		mismatch     bool
		timeout      time.Duration
		want         bool
		wantLastFlag bool
	}{
		{name: "matches on retry", verdicts: []bool{false, false, true}, timeout: 5 * time.Second, want: true, wantLastFlag: true},
		{name: "never matches", mismatch: true, timeout: 50 * time.Millisecond, want: false, wantLastFlag: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t)
			srv.verdicts = tt.verdicts
			srv.mismatch = tt.mismatch
			e, _ := newTestEyes(t, srv, func(c *Configuration) {
				c.MatchTimeout = tt.timeout
				c.RetryInterval = 10 * time.Millisecond
			})
			d := browsertest.NewFakeDriver()
			d.Viewport = geometry.Size{Width: 64, Height: 48}
			ctx := context.Background()
			if err := e.Open(ctx, d, "app", "test", nil); err != nil {
				t.Fatal(err)
			}

			got, err := e.CheckWindow(ctx, "home")
			if err != nil {
				t.Fatalf("CheckWindow() = error %v; want nil", err)
			}
			if got != tt.want {
				t.Errorf("CheckWindow() = %v; want %v", got, tt.want)
			}

			_, matches, _ := srv.snapshot()
			if len(matches) < 2 {
				t.Fatalf("match requests = %d; want retries", len(matches))
			}
			if !matches[0].IgnoreMismatch {
				t.Error("retry match should ignore mismatches")
			}
			if last := matches[len(matches)-1]; last.IgnoreMismatch != tt.wantLastFlag {
				t.Errorf("last match ignoreMismatch = %v; want %v", last.IgnoreMismatch, tt.wantLastFlag)
			}
			if tt.want && len(matches) != 3 {
				t.Errorf("match requests = %d; want 3", len(matches))
			}
		})
	}
}

func TestEyes_Close_Failures(t *testing.T) {
	tests := []struct {
		name       string
		newSession bool
		save       bool
		results    TestResults
		check      func(t *testing.T, err error)
		wantUpdate string
	}{
		{
			name:    "mismatch",
			results: TestResults{Steps: 2, Matches: 1, Mismatches: 1, URL: "https://eyes.test/r/1"},
			check: func(t *testing.T, err error) {
				var failed *TestFailedError
				if !errors.As(err, &failed) {
					t.Fatalf("Close() = %v; want TestFailedError", err)
				}
				if failed.Results.Mismatches != 1 {
					t.Errorf("mismatches = %d; want 1", failed.Results.Mismatches)
				}
			},
			wantUpdate: "false",
		},
		{
			name:       "new baseline saved",
			newSession: true,
			save:       true,
			results:    TestResults{Steps: 1},
			check: func(t *testing.T, err error) {
				var newTest *NewTestError
				if !errors.As(err, &newTest) {
					t.Fatalf("Close() = %v; want NewTestError", err)
				}
			},
			wantUpdate: "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t)
			srv.newSession = tt.newSession
			srv.results = tt.results
			e, m := newTestEyes(t, srv, func(c *Configuration) { c.SaveNewTests = tt.save })
			ctx := context.Background()
			if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err != nil {
				t.Fatal(err)
			}

			results, err := e.Close(ctx)
			if results == nil {
				t.Fatal("Close() results = nil; want results with the error")
			}
			tt.check(t, err)

			_, _, stops := srv.snapshot()
			if got := stops[0].Get("updateBaseline"); got != tt.wantUpdate {
				t.Errorf("updateBaseline = %q; want %q", got, tt.wantUpdate)
			}
			if tt.newSession && m.NewBaselines.Load() != 1 {
				t.Errorf("NewBaselines = %d; want 1", m.NewBaselines.Load())
			}
			if e.IsOpen() {
				t.Error("session still open after a failed Close")
			}
		})
	}
}

func TestEyes_AbortIfNotClosed(t *testing.T) {
	srv := newFakeServer(t)
	e, m := newTestEyes(t, srv, nil)
	ctx := context.Background()
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err != nil {
		t.Fatal(err)
	}

	results, err := e.AbortIfNotClosed(ctx)
	if err != nil {
		t.Fatalf("AbortIfNotClosed() = error %v; want nil", err)
	}
	if !results.IsAborted {
		t.Error("results.IsAborted = false; want true")
	}
	if e.IsOpen() {
		t.Error("IsOpen() = true after abort")
	}
	_, _, stops := srv.snapshot()
	if stops[0].Get("aborted") != "true" {
		t.Errorf("aborted = %q; want true", stops[0].Get("aborted"))
	}
	if m.SessionsAborted.Load() != 1 {
		t.Errorf("SessionsAborted = %d; want 1", m.SessionsAborted.Load())
	}
}

func TestEyes_HideScrollbarsAndFullPage(t *testing.T) {
	srv := newFakeServer(t)
	e, _ := newTestEyes(t, srv, func(c *Configuration) { c.HideScrollbars = true })
	d := browsertest.NewFakeDriver()
	ctx := context.Background()
	if err := e.Open(ctx, d, "app", "test", nil); err != nil {
		t.Fatal(err)
	}

	e.SetForceFullPage(true)
	if _, err := e.CheckWindow(ctx, "full"); err != nil {
		t.Fatal(err)
	}

	if len(d.Scripts) != 2 || d.Scripts[0] != hideScrollbarsScript || d.Scripts[1] != restoreScrollbarsScript {
		t.Errorf("scripts = %q; want hide then restore", d.Scripts)
	}
	_, matches, _ := srv.snapshot()
	if got := decodeShot(t, matches[0]); got != d.Document {
		t.Errorf("full page screenshot = %v; want document size %v", got, d.Document)
	}
}

func TestEyes_MatchImage(t *testing.T) {
	srv := newFakeServer(t)
	e, m := newTestEyes(t, srv, nil)
	ctx := context.Background()
	if err := e.Open(ctx, browsertest.NewFakeDriver(), "app", "test", nil); err != nil {
		t.Fatal(err)
	}

	img, err := browsertest.SolidPNG(40, 30, color.White)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.MatchImage(ctx, img, "logo.png", true); err != nil {
		t.Fatalf("MatchImage() = error %v; want nil", err)
	}

	_, matches, _ := srv.snapshot()
	if matches[0].Tag != "logo.png" || !matches[0].IgnoreMismatch {
		t.Errorf("match = tag %q ignoreMismatch %v; want logo.png true", matches[0].Tag, matches[0].IgnoreMismatch)
	}
	if got := decodeShot(t, matches[0]); got != (geometry.Size{Width: 40, Height: 30}) {
		t.Errorf("image size = %v; want 40x30", got)
	}
	if m.ImagesCompared.Load() != 1 {
		t.Errorf("ImagesCompared = %d; want 1", m.ImagesCompared.Load())
	}
}

func TestNewConfiguration(t *testing.T) {
	t.Setenv("TEST_APPEYES_KEY", "abc")
	cfg := NewConfiguration(config.EyesConfig{
		APIKeyEnv:    "TEST_APPEYES_KEY",
		MatchLevel:   "content",
		MatchTimeout: "2s",
		SaveNewTests: true,
	})
	if cfg.APIKey != "abc" {
		t.Errorf("APIKey = %q; want abc", cfg.APIKey)
	}
	if cfg.MatchLevel != MatchContent {
		t.Errorf("MatchLevel = %v; want Content", cfg.MatchLevel)
	}
	if cfg.MatchTimeout != 2*time.Second {
		t.Errorf("MatchTimeout = %v; want 2s", cfg.MatchTimeout)
	}
	if cfg.ServerURL != config.DefaultServerURL {
		t.Errorf("ServerURL = %q; want default", cfg.ServerURL)
	}
	if !cfg.SaveNewTests {
		t.Error("SaveNewTests = false; want true")
	}
}
