package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/insajin/appeyes/internal/browser"
	"github.com/insajin/appeyes/internal/browser/browsertest"
	"github.com/insajin/appeyes/internal/geometry"
	"github.com/insajin/appeyes/internal/selector"
	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T) (*browser.Manager, *[]*browsertest.FakeDriver) {
	t.Helper()
	var opened []*browsertest.FakeDriver
	open := func(ctx context.Context, name string) (browser.Driver, error) {
		if name == "broken" {
			return nil, errors.New("driver not installed")
		}
		d := browsertest.NewFakeDriver()
		opened = append(opened, d)
		return d, nil
	}
	return browser.NewManager(open, zerolog.Nop()), &opened
}

func TestManager_OpenBrowser(t *testing.T) {
	m, opened := newTestManager(t)

	idx, err := m.OpenBrowser(context.Background(), "http://www.navinet.net/", "gc", "")
	if err != nil {
		t.Fatalf("OpenBrowser() = error %v; want nil", err)
	}
	if idx != 1 {
		t.Errorf("index = %d; want 1", idx)
	}

	d, err := m.CurrentBrowser()
	if err != nil {
		t.Fatalf("CurrentBrowser() = error %v; want nil", err)
	}
	if d != (*opened)[0] {
		t.Error("CurrentBrowser() did not return the opened driver")
	}
	if got := (*opened)[0].Navigations; len(got) != 1 || got[0] != "http://www.navinet.net/" {
		t.Errorf("navigations = %v; want [http://www.navinet.net/]", got)
	}
}

func TestManager_OpenBrowser_Error(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.OpenBrowser(context.Background(), "", "broken", ""); err == nil {
		t.Error("OpenBrowser(broken) = nil error; want error")
	}
	if m.OpenCount() != 0 {
		t.Errorf("OpenCount() = %d; want 0", m.OpenCount())
	}
}

func TestManager_SwitchAndClose(t *testing.T) {
	m, opened := newTestManager(t)
	ctx := context.Background()

	if _, err := m.OpenBrowser(ctx, "", "chrome", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.OpenBrowser(ctx, "", "chrome", "second"); err != nil {
		t.Fatal(err)
	}

	if err := m.SwitchBrowser("first"); err != nil {
		t.Fatalf("SwitchBrowser(first) = error %v; want nil", err)
	}
	d, _ := m.CurrentBrowser()
	if d != (*opened)[0] {
		t.Error("current browser is not the first one after switching by alias")
	}
	if err := m.SwitchBrowser("2"); err != nil {
		t.Fatalf("SwitchBrowser(2) = error %v; want nil", err)
	}
	if err := m.SwitchBrowser("nope"); err == nil {
		t.Error("SwitchBrowser(nope) = nil error; want error")
	}

	if err := m.CloseBrowser(); err != nil {
		t.Fatalf("CloseBrowser() = error %v; want nil", err)
	}
	if !(*opened)[1].Closed {
		t.Error("second browser was not closed")
	}
	if _, err := m.CurrentBrowser(); !errors.Is(err, browser.ErrNoBrowserOpen) {
		t.Errorf("CurrentBrowser() after close = %v; want ErrNoBrowserOpen", err)
	}
	// 열린 브라우저가 없을 때 닫기는 no-op
	if err := m.CloseBrowser(); err != nil {
		t.Errorf("CloseBrowser() with none current = error %v; want nil", err)
	}

	if err := m.CloseAllBrowsers(); err != nil {
		t.Fatalf("CloseAllBrowsers() = error %v; want nil", err)
	}
	if !(*opened)[0].Closed {
		t.Error("first browser was not closed by CloseAllBrowsers")
	}
	if m.OpenCount() != 0 {
		t.Errorf("OpenCount() = %d; want 0", m.OpenCount())
	}
}

// 같은 별칭이 여러 번 쓰이면 가장 최근에 연 브라우저로 전환합니다.
func TestManager_SwitchBrowser_DuplicateAlias(t *testing.T) {
	m, opened := newTestManager(t)
	ctx := context.Background()

	for _, alias := range []string{"main", "other", "main", "other"} {
		if _, err := m.OpenBrowser(ctx, "", "chrome", alias); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 5; i++ {
		if err := m.SwitchBrowser("main"); err != nil {
			t.Fatalf("SwitchBrowser(main) = error %v; want nil", err)
		}
		d, _ := m.CurrentBrowser()
		if d != (*opened)[2] {
			t.Fatalf("SwitchBrowser(main) picked a browser other than index 3")
		}
	}
}

func TestRegistry(t *testing.T) {
	r := browser.NewRegistry()

	if _, err := r.CurrentBrowser("SeleniumLibrary"); !errors.Is(err, browser.ErrLibraryNotFound) {
		t.Errorf("CurrentBrowser(unregistered) = %v; want ErrLibraryNotFound", err)
	}

	r.Register("SeleniumLibrary", &browsertest.FakeLibrary{})
	if _, err := r.CurrentBrowser("SeleniumLibrary"); !errors.Is(err, browser.ErrNoBrowserOpen) {
		t.Errorf("CurrentBrowser(no browser) = %v; want ErrNoBrowserOpen", err)
	}

	d := browsertest.NewFakeDriver()
	r.Register("SeleniumLibrary", &browsertest.FakeLibrary{Driver: d})
	got, err := r.CurrentBrowser("SeleniumLibrary")
	if err != nil {
		t.Fatalf("CurrentBrowser() = error %v; want nil", err)
	}
	if got != d {
		t.Error("CurrentBrowser() returned a different driver")
	}

	if names := r.Names(); len(names) != 1 || names[0] != "SeleniumLibrary" {
		t.Errorf("Names() = %v; want [SeleniumLibrary]", names)
	}
}

func TestBounds(t *testing.T) {
	d := browsertest.NewFakeDriver()
	d.AddElement(selector.ID, "navbar", geometry.Point{X: 10, Y: 20}, geometry.Size{Width: 300, Height: 40})

	el, err := d.FindElement(context.Background(), selector.ID, "navbar")
	if err != nil {
		t.Fatal(err)
	}
	got, err := browser.Bounds(context.Background(), el)
	if err != nil {
		t.Fatalf("Bounds() = error %v; want nil", err)
	}
	want := geometry.Region{Left: 10, Top: 20, Width: 300, Height: 40}
	if got != want {
		t.Errorf("Bounds() = %v; want %v", got, want)
	}
}
