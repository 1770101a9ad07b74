package browser_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"

	"taskroom/internal/adapters/backend/backendtest"
	web "taskroom/internal/adapters/http"
	"taskroom/internal/adapters/http/middleware"
	"taskroom/internal/adapters/storage"
	outboxStore "taskroom/internal/adapters/storage/outbox"
	sessionStore "taskroom/internal/adapters/storage/session"
)

// testApp holds the running test server, the fake backend and Playwright handles.
type testApp struct {
	BaseURL string
	Backend *backendtest.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp wires the web handlers to an in-memory database and a fake
// backend, then starts Chromium.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init test DB: %v", err)
	}

	be := backendtest.New(t)
	limiter := middleware.NewRateLimiter(10000)

	handler, err := web.NewMux(web.Deps{
		Backend:  be.Client(t),
		Sessions: sessionStore.NewSQLiteStore(db),
		Outbox:   outboxStore.NewSQLiteStore(db),
		Limiter:  limiter,
		Secret:   []byte(strings.Repeat("b", 32)),
	})
	if err != nil {
		t.Fatalf("failed to build handlers: %v", err)
	}
	srv := httptest.NewServer(handler)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		limiter.Stop()
		db.Close()
	})

	return &testApp{BaseURL: srv.URL, Backend: be, PW: pw, Browser: browser}
}

// newPage opens a tab in a fresh context that may use the clipboard.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	bctx, err := a.Browser.NewContext(playwright.BrowserNewContextOptions{
		Permissions: []string{"clipboard-read", "clipboard-write"},
	})
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	t.Cleanup(func() { bctx.Close() })
	page, err := bctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	return page
}

// signupAdmin creates an admin account through the signup form.
func (a *testApp) signupAdmin(t *testing.T, page playwright.Page, username, email, password string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/signup"); err != nil {
		t.Fatalf("failed to navigate to signup: %v", err)
	}
	fill(t, page, "#username", username)
	fill(t, page, "#email", email)
	fill(t, page, "#password", password)
	if _, err := page.Locator("#role").SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice("admin")}); err != nil {
		t.Fatalf("failed to pick role: %v", err)
	}
	if err := page.Locator("#signupForm button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit signup: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/login", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("signup did not redirect to login: %v", err)
	}
}

// login signs in through the login form and waits for dashboardPath.
func (a *testApp) login(t *testing.T, page playwright.Page, email, password, dashboardPath string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	fill(t, page, "#email", email)
	fill(t, page, "#password", password)
	if err := page.Locator("#loginForm button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+dashboardPath, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to %s: %v", dashboardPath, err)
	}
}

func fill(t *testing.T, page playwright.Page, selector, value string) {
	t.Helper()
	if err := page.Locator(selector).Fill(value); err != nil {
		t.Fatalf("failed to fill %s: %v", selector, err)
	}
}
