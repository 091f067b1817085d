package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/token"
)

// FakeAPI is an in-process stand-in for the Leszmonitor backend. It speaks
// the real wire contract (bearer auth, JSON bodies, RFC 3339 timestamps) and
// counts requests per method+path so tests can assert on coalescing and
// fail-fast behavior.
type FakeAPI struct {
	t      *testing.T
	Server *httptest.Server
	secret []byte

	mu        sync.Mutex
	users     map[string]domain.User
	passwords map[string]string
	teams     map[string]*domain.Team
	groups    map[string][]domain.Group
	hits      map[string]int
}

// NewFakeAPI starts a fake backend; it is torn down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		t:         t,
		secret:    []byte("fake-api-secret"),
		users:     make(map[string]domain.User),
		passwords: make(map[string]string),
		teams:     make(map[string]*domain.Team),
		groups:    make(map[string][]domain.Group),
		hits:      make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(f.countRequests)

	r.Post("/auth/register", f.handleRegister)
	r.Post("/auth/login", f.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(f.requireAuth)
		r.Get("/users", f.handleListUsers)
		r.Get("/users/{username}", f.handleGetUser)
		r.Get("/teams", f.handleListTeams)
		r.Route("/teams/{teamId}", func(r chi.Router) {
			r.Get("/", f.handleGetTeam)
			r.Post("/members", f.handleAddMember)
			r.Delete("/members", f.handleRemoveMember)
			r.Get("/groups", f.handleListGroups)
			r.Post("/groups", f.handleAddGroup)
			r.Delete("/groups/{groupId}", f.handleDeleteGroup)
		})
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the backend base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Hits returns how many requests arrived for a method and path, e.g.
// Hits("GET", "/users/alice").
func (f *FakeAPI) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// TotalHits returns the total number of requests the backend has seen.
func (f *FakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

// Token mints a signed session token carrying the username claim, the shape
// the real backend issues.
func (f *FakeAPI) Token(username string) string {
	f.t.Helper()
	claims := jwt.MapClaims{
		"username": username,
		"iat":      time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		f.t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// SeedUser registers a user directly.
func (f *FakeAPI) SeedUser(username, password string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	user := domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[username] = user
	f.passwords[username] = password
	return user
}

// SeedTeam creates a team keyed by its display id.
func (f *FakeAPI) SeedTeam(displayID, name string, members ...domain.TeamMember) *domain.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	team := &domain.Team{
		ID:          uuid.New().String(),
		DisplayID:   displayID,
		Name:        name,
		Description: name + " workspace",
		Members:     members,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.teams[displayID] = team
	return team
}

// Member builds a team member fixture.
func Member(username string, role domain.TeamRole) domain.TeamMember {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.TeamMember{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SeedGroup adds a group to a team.
func (f *FakeAPI) SeedGroup(teamID, name string) domain.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	group := f.newGroupLocked(name)
	f.groups[teamID] = append(f.groups[teamID], group)
	return group
}

// TempTokenStore returns a token store backed by a per-test file.
func TempTokenStore(t *testing.T) *token.Store {
	t.Helper()
	return token.NewStore(filepath.Join(t.TempDir(), "login_token"))
}

func (f *FakeAPI) newGroupLocked(name string) domain.Group {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Group{
		ID:          uuid.New().String(),
		DisplayID:   strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:        name,
		Description: "",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (f *FakeAPI) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.Header.Get("Authorization"), " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		_, err := jwt.Parse(parts[1], func(*jwt.Token) (any, error) { return f.secret, nil },
			jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	_, exists := f.users[creds.Username]
	f.mu.Unlock()
	if exists {
		http.Error(w, "username taken", http.StatusConflict)
		return
	}
	f.SeedUser(creds.Username, creds.Password)
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	stored, ok := f.passwords[creds.Username]
	f.mu.Unlock()
	if !ok || stored != creds.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"jwt": f.Token(creds.Username)})
}

func (f *FakeAPI) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	users := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (f *FakeAPI) handleGetUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	user, ok := f.users[chi.URLParam(r, "username")]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeAPI) handleListTeams(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	teams := make([]domain.Team, 0, len(f.teams))
	for _, t := range f.teams {
		teams = append(teams, *t)
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, teams)
}

func (f *FakeAPI) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	team, ok := f.teams[chi.URLParam(r, "teamId")]
	var copied domain.Team
	if ok {
		copied = *team
	}
	f.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, copied)
}

func (f *FakeAPI) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string          `json:"username"`
		Role     domain.TeamRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Username == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[chi.URLParam(r, "teamId")]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	team.Members = append(team.Members, Member(input.Username, input.Role))
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeAPI) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[chi.URLParam(r, "teamId")]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	kept := team.Members[:0]
	for _, m := range team.Members {
		if m.Username != input.Username {
			kept = append(kept, m)
		}
	}
	team.Members = kept
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleListGroups(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	groups := append([]domain.Group(nil), f.groups[chi.URLParam(r, "teamId")]...)
	f.mu.Unlock()
	if groups == nil {
		groups = []domain.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (f *FakeAPI) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var input domain.GroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	group := f.newGroupLocked(input.Name)
	if input.DisplayID != "" {
		group.DisplayID = input.DisplayID
	}
	group.Description = input.Description
	teamID := chi.URLParam(r, "teamId")
	f.groups[teamID] = append(f.groups[teamID], group)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, group)
}

func (f *FakeAPI) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")
	groupID := chi.URLParam(r, "groupId")
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.groups[teamID][:0]
	found := false
	for _, g := range f.groups[teamID] {
		if g.ID == groupID {
			found = true
			continue
		}
		kept = append(kept, g)
	}
	f.groups[teamID] = kept
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
