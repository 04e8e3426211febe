// Package testutil provides test helpers for the session core: an in-memory
// job-board auth API, fluent fixture builders and a recording metrics sink.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
)

// SessionCookie is the cookie name the job-board API uses for its access token.
const SessionCookie = "hustlehub_access_token"

type apiUser struct {
	user     domainauth.User
	password string
}

// APIServer is an in-memory stand-in for the job-board API's /auth endpoints.
// It issues HS256 JWT session cookies the way the real API does.
type APIServer struct {
	*httptest.Server

	Secret   []byte
	TokenTTL time.Duration

	mu          sync.Mutex
	users       map[string]apiUser
	nextID      int64
	calls       map[string]int
	unavailable bool
}

// NewAPIServer starts an APIServer that is closed when the test ends.
func NewAPIServer(t testing.TB) *APIServer {
	t.Helper()

	s := &APIServer{
		Secret:   []byte("test-secret"),
		TokenTTL: 24 * time.Hour,
		users:    make(map[string]apiUser),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	s.Server = httptest.NewServer(s.track(mux))
	t.Cleanup(s.Close)
	return s
}

// SeedUser adds an account directly, bypassing /auth/register.
func (s *APIServer) SeedUser(username, email, password string, role domainauth.Role) domainauth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(username, email, password, role)
}

// SetUnavailable makes every endpoint answer 503 while set.
func (s *APIServer) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = down
}

// Calls returns how many requests hit "METHOD /path".
func (s *APIServer) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *APIServer) addLocked(username, email, password string, role domainauth.Role) domainauth.User {
	s.nextID++
	u := domainauth.User{ID: s.nextID, Username: username, Email: email, Role: role}
	s.users[strings.ToLower(email)] = apiUser{user: u, password: password}
	return u
}

func (s *APIServer) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		down := s.unavailable
		s.mu.Unlock()

		if down {
			writeDetail(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) handleMe(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	id, _ := strconv.ParseInt(claims.Subject, 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.user.ID == id {
			writeJSON(w, http.StatusOK, u.user)
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "User not found")
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in domainauth.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", "invalid JSON")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(in.Email)]
	s.mu.Unlock()
	if !ok || u.password != in.Password {
		writeDetail(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	s.setSession(w, u.user.ID)
	writeJSON(w, http.StatusOK, u.user)
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in domainauth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", "invalid JSON")
		return
	}
	if in.Role == "" {
		in.Role = domainauth.RoleApplicant
	}
	if in.Role != domainauth.RoleApplicant && in.Role != domainauth.RoleEmployer {
		writeDetail(w, http.StatusBadRequest, "Invalid role selection")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[strings.ToLower(in.Email)]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	for _, u := range s.users {
		if u.user.Username == in.Username {
			s.mu.Unlock()
			writeDetail(w, http.StatusBadRequest, "Username already taken")
			return
		}
	}
	user := s.addLocked(in.Username, in.Email, in.Password, in.Role)
	s.mu.Unlock()

	// Registration creates the account only; the client logs in afterwards.
	writeJSON(w, http.StatusOK, user)
}

func (s *APIServer) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeDetail(w, http.StatusOK, "Logged out")
}

// IssueToken returns a signed session token for userID that expires after ttl.
func (s *APIServer) IssueToken(userID int64, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		panic(err)
	}
	return token
}

func (s *APIServer) setSession(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.IssueToken(userID, s.TokenTTL),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.TokenTTL / time.Second),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// writeValidation mimics the API framework's 422 body, where detail is a list.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}},
	})
}
