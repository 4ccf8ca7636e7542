// Package apifake is an in-memory stand-in for the business directory REST
// API. It serves the token, registration, profile and dashboard endpoints
// with the same request and error shapes as the real service and is used by
// tests and the fakeapi command.
package apifake

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenPath     = "/token/"
	RefreshPath   = "/token/refresh/"
	RegisterPath  = "/register/"
	ProfilePath   = "/profile/"
	DashboardPath = "/dashboard/"
)

// failure is a canned response returned instead of the real handler.
type failure struct {
	status int
	body   any
	count  int
}

type Server struct {
	mu         sync.RWMutex
	users      map[int64]*User
	byUsername map[string]int64
	byEmail    map[string]int64
	nextID     int64
	revoked    map[string]bool
	hits       map[string]int
	requests   *metrics.Requests
	failures   map[string]*failure

	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
	passwordCost  int
	router        chi.Router
}

type Option func(*Server)

func WithSigningSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithAccessTTL sets the access token lifetime. A negative value issues
// tokens that are already expired.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = ttl
	}
}

// WithRefreshRotation makes the refresh endpoint return a new refresh token
// and revoke the one presented.
func WithRefreshRotation() Option {
	return func(s *Server) {
		s.rotateRefresh = true
	}
}

// WithRegisterer exports per-endpoint request counts to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.requests = metrics.NewRequests(reg, TokenPath, RefreshPath, RegisterPath, ProfilePath, DashboardPath)
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Server) {
		s.passwordCost = cost
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		users:        make(map[int64]*User),
		byUsername:   make(map[string]int64),
		byEmail:      make(map[string]int64),
		revoked:      make(map[string]bool),
		hits:         make(map[string]int),
		failures:     make(map[string]*failure),
		secret:       []byte("dev-signing-secret"),
		accessTTL:    5 * time.Minute,
		refreshTTL:   24 * time.Hour,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.countHits)
	r.Use(s.injectFailures)

	r.Post(TokenPath, s.handleLogin)
	r.Post(RefreshPath, s.handleRefresh)
	r.Post(RegisterPath, s.handleRegister)
	r.Get(ProfilePath, s.requireAuth(s.handleProfile))
	r.Get(DashboardPath, s.requireAuth(s.handleDashboard))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	return r
}

// Handler returns the API mounted at prefix (e.g., "/api").
func (s *Server) Handler(prefix string) http.Handler {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return s.router
	}
	return http.StripPrefix(prefix, s.router)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers an account directly, bypassing field validation. A
// taken username or email fails with errs.ErrUserExists.
func (s *Server) AddUser(u User, password string) (*User, error) {
	hash, err := hashPassword(password, s.passwordCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	if conflicts := s.conflictsLocked(u.Username, u.Email); len(conflicts) > 0 {
		return nil, errs.Wrapf(errs.ErrUserExists, "apifake: %s", u.Username)
	}
	return s.insertLocked(u), nil
}

// conflictsLocked returns the duplicate field messages for a new account.
func (s *Server) conflictsLocked(username, email string) map[string][]string {
	conflicts := make(map[string][]string)
	if _, taken := s.byUsername[strings.ToLower(username)]; taken {
		conflicts["username"] = []string{"A user with that username already exists."}
	}
	if email == "" {
		return conflicts
	}
	if _, taken := s.byEmail[strings.ToLower(email)]; taken {
		conflicts["email"] = []string{"user with this email already exists."}
	}
	return conflicts
}

func (s *Server) insertLocked(u User) *User {
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	user := &u
	s.users[user.ID] = user
	s.byUsername[strings.ToLower(user.Username)] = user.ID
	if user.Email != "" {
		s.byEmail[strings.ToLower(user.Email)] = user.ID
	}
	return user
}

// User returns a copy of the account with the given id.
func (s *Server) User(id int64) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// authenticate resolves identifier (username or email) and checks password.
func (s *Server) authenticate(identifier, password string) (*User, error) {
	user, ok := s.lookup(identifier)
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	if !checkPasswordHash(password, user.PasswordHash) {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Server) lookup(identifier string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := strings.ToLower(identifier)
	id, ok := s.byUsername[key]
	if !ok {
		id, ok = s.byEmail[key]
	}
	if !ok {
		return nil, false
	}
	u := *s.users[id]
	return &u, true
}

// Hits reports how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

func (s *Server) ResetHits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = make(map[string]int)
}

// FailNext makes the next count requests to path answer with status and body.
func (s *Server) FailNext(path string, count, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &failure{status: status, body: body, count: count}
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		s.requests.Hit(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.URL.Path]
		if ok {
			f.count--
			if f.count <= 0 {
				delete(s.failures, r.URL.Path)
			}
		}
		s.mu.Unlock()

		if ok {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}
