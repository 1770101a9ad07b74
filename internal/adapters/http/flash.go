package web

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

const (
	flashCookieName = "taskroom_flash"
	flashMaxAge     = 60 // seconds; a flash only has to survive one redirect
)

// Flash kinds map to the toast styles in app.css.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot toast carried across a redirect.
type Flash struct {
	Kind string `json:"k"`
	Msg  string `json:"m"`
}

// flasher signs and encrypts flash cookies.
type flasher struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// newFlasher derives the cookie's hash and block keys from the app secret.
// PRE: secret is 32 bytes
func newFlasher(secret []byte, secure bool) (*flasher, error) {
	hashKey, err := deriveKey(secret, "taskroom flash hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "taskroom flash block", 32)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(flashMaxAge)
	return &flasher{codec: codec, secure: secure}, nil
}

// deriveKey expands secret into n bytes bound to info.
func deriveKey(secret []byte, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// set queues a toast for the next page render.
func (f *flasher) set(w http.ResponseWriter, kind, msg string) {
	encoded, err := f.codec.Encode(flashCookieName, Flash{Kind: kind, Msg: msg})
	if err != nil {
		slog.Error("flash_encode_failed", "error", err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// pop returns the queued toast, if any, and clears it.
// Tampered or stale cookies are dropped silently.
func (f *flasher) pop(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
	var fl Flash
	if err := f.codec.Decode(flashCookieName, c.Value, &fl); err != nil {
		return nil
	}
	return &fl
}
