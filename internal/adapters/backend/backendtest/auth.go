package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (s *Server) serveAuth(w http.ResponseWriter, r *http.Request, body []byte) {
	path := strings.TrimPrefix(r.URL.Path, "/auth/v1")
	switch {
	case r.Method == http.MethodPost && path == "/signup":
		s.signup(w, body)
	case r.Method == http.MethodPost && path == "/token":
		s.token(w, r, body)
	case r.Method == http.MethodGet && path == "/user":
		u, _, err := s.authenticate(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "bad_jwt", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, userJSON(u))
	case r.Method == http.MethodPost && path == "/logout":
		_, sid, err := s.authenticate(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "bad_jwt", err.Error())
			return
		}
		delete(s.sessions, sid)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/admin/users/"):
		s.adminDelete(w, r, strings.TrimPrefix(path, "/admin/users/"))
	default:
		writeAuthError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func (s *Server) signup(w http.ResponseWriter, body []byte) {
	var in struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &in); err != nil || in.Email == "" {
		writeAuthError(w, http.StatusBadRequest, "validation_failed", "Unable to validate email address: invalid format")
		return
	}
	if len(in.Password) < 6 {
		writeAuthError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
		return
	}
	for _, u := range s.users {
		if strings.EqualFold(u.email, in.Email) {
			writeAuthError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
			return
		}
	}
	u := &authUser{id: uuid.NewString(), email: in.Email, password: in.Password, metadata: in.Data, created: s.tick()}
	s.users[u.id] = u
	if s.AutoConfirm {
		writeJSON(w, http.StatusOK, s.issue(u))
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (s *Server) token(w http.ResponseWriter, r *http.Request, body []byte) {
	var in struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.Unmarshal(body, &in)

	switch r.URL.Query().Get("grant_type") {
	case "password":
		for _, u := range s.users {
			if strings.EqualFold(u.email, in.Email) && u.password == in.Password {
				writeJSON(w, http.StatusOK, s.issue(u))
				return
			}
		}
		writeAuthError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	case "refresh_token":
		sid, ok := s.refresh[in.RefreshToken]
		if !ok {
			writeAuthError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(s.refresh, in.RefreshToken)
		uid, live := s.sessions[sid]
		u, exists := s.users[uid]
		if !live || !exists {
			writeAuthError(w, http.StatusBadRequest, "session_not_found", "Invalid Refresh Token: Session Expired")
			return
		}
		delete(s.sessions, sid)
		writeJSON(w, http.StatusOK, s.issue(u))
	default:
		writeAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported_grant_type")
	}
}

func (s *Server) adminDelete(w http.ResponseWriter, r *http.Request, id string) {
	if r.Header.Get("apikey") != ServiceKey || r.Header.Get("Authorization") != "Bearer "+ServiceKey {
		writeAuthError(w, http.StatusForbidden, "not_admin", "User not allowed")
		return
	}
	if _, ok := s.users[id]; !ok {
		writeAuthError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	delete(s.users, id)
	for sid, uid := range s.sessions {
		if uid == id {
			delete(s.sessions, sid)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}
