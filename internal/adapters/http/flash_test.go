package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestFlasher(t *testing.T, secret string) *flasher {
	t.Helper()
	f, err := newFlasher([]byte(strings.Repeat(secret, 32)), false)
	if err != nil {
		t.Fatalf("newFlasher: %v", err)
	}
	return f
}

// carry moves the cookies set on rec onto a new request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestFlash_RoundTrip(t *testing.T) {
	f := newTestFlasher(t, "a")
	rec := httptest.NewRecorder()
	f.set(rec, FlashError, "Failed to create room")

	cookie := rec.Result().Cookies()[0]
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags: HttpOnly=%v SameSite=%v", cookie.HttpOnly, cookie.SameSite)
	}
	if strings.Contains(cookie.Value, "Failed") {
		t.Error("flash cookie should be encrypted")
	}

	out := httptest.NewRecorder()
	got := f.pop(out, carry(rec))
	if got == nil || got.Kind != FlashError || got.Msg != "Failed to create room" {
		t.Fatalf("pop = %+v", got)
	}
	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("pop should expire the cookie, got %+v", cleared)
	}
}

func TestFlash_Rejected(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "no cookie",
			req:  func(*testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
		},
		{
			name: "tampered",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.AddCookie(&http.Cookie{Name: flashCookieName, Value: "bm90IGEgZmxhc2g="})
				return r
			},
		},
		{
			name: "other secret",
			req: func(t *testing.T) *http.Request {
				rec := httptest.NewRecorder()
				newTestFlasher(t, "b").set(rec, FlashSuccess, "hi")
				return carry(rec)
			},
		},
	}
	f := newTestFlasher(t, "a")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.pop(httptest.NewRecorder(), tt.req(t)); got != nil {
				t.Errorf("pop = %+v, want nil", got)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	hash, err := deriveKey(secret, "taskroom flash hash", 64)
	if err != nil {
		t.Fatal(err)
	}
	block, err := deriveKey(secret, "taskroom flash block", 32)
	if err != nil {
		t.Fatal(err)
	}
	if len(hash) != 64 || len(block) != 32 {
		t.Fatalf("lengths = %d, %d", len(hash), len(block))
	}
	if string(hash[:32]) == string(block) {
		t.Error("keys for different purposes must differ")
	}
	again, _ := deriveKey(secret, "taskroom flash hash", 64)
	if string(again) != string(hash) {
		t.Error("derivation must be deterministic")
	}
}
