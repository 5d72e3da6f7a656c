package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/trailhead/tour-bookings/internal/domain"
	"github.com/trailhead/tour-bookings/internal/http/handlers"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/pkg/auth"
	"github.com/trailhead/tour-bookings/pkg/config"
)

type memUserRepo struct {
	nextID  int64
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, byEmail: make(map[string]*domain.User)}
}

func (m *memUserRepo) Create(_ context.Context, name, email, passwordHash string) (*domain.User, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, postgres.ErrEmailTaken
	}
	u := &domain.User{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.byEmail[email] = u
	return u, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.byEmail[email], nil
}

func (m *memUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

type nopPublisher struct{ published int }

func (n *nopPublisher) Publish(context.Context, string, interface{}) error {
	n.published++
	return nil
}

func (n *nopPublisher) Close() error { return nil }

func authHandlers(users *memUserRepo, bus *nopPublisher) (*handlers.Handlers, *config.Config) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTL = time.Hour
	return handlers.New(cfg, nil, nil, nil, users, nil, bus), cfg
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestSignupIssuesToken(t *testing.T) {
	users := newMemUserRepo()
	bus := &nopPublisher{}
	h, cfg := authHandlers(users, bus)

	rr := postJSON(t, h.Signup, "/api/v1/users/signup", domain.SignupReq{
		Name:     "Ada",
		Email:    "Ada@X.com",
		Password: "correct horse",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}

	claims, err := auth.Parse(body.Token, cfg.Auth.JWTSecret)
	if err != nil {
		t.Fatalf("issued token must parse: %v", err)
	}
	if claims.Sub != body.User.ID || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Stored email is normalized; the hash never leaves the server.
	if users.byEmail["ada@x.com"] == nil {
		t.Fatal("expected email to be lowercased on storage")
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("password_hash")) {
		t.Fatal("response must not leak the password hash")
	}
	if bus.published != 1 {
		t.Fatalf("expected signup event, got %d", bus.published)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	users := newMemUserRepo()
	h, _ := authHandlers(users, &nopPublisher{})

	req := domain.SignupReq{Name: "Ada", Email: "a@x.com", Password: "correct horse"}
	if rr := postJSON(t, h.Signup, "/api/v1/users/signup", req); rr.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", rr.Code)
	}

	rr := postJSON(t, h.Signup, "/api/v1/users/signup", req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	h, _ := authHandlers(newMemUserRepo(), &nopPublisher{})

	cases := []domain.SignupReq{
		{Name: "", Email: "a@x.com", Password: "correct horse"},
		{Name: "Ada", Email: "not-an-email", Password: "correct horse"},
		{Name: "Ada", Email: "a@x.com", Password: "short"},
	}
	for _, req := range cases {
		if rr := postJSON(t, h.Signup, "/api/v1/users/signup", req); rr.Code != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %d", req, rr.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	users := newMemUserRepo()
	hash, err := argon2id.CreateHash("correct horse", argon2id.DefaultParams)
	if err != nil {
		t.Fatal(err)
	}
	users.byEmail["a@x.com"] = &domain.User{
		ID: 1, Name: "Ada", Email: "a@x.com", Role: domain.RoleUser, PasswordHash: hash,
	}
	h, cfg := authHandlers(users, &nopPublisher{})

	rr := postJSON(t, h.Login, "/api/v1/users/login", domain.LoginReq{Email: "A@X.com", Password: "correct horse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if _, err := auth.Parse(body.Token, cfg.Auth.JWTSecret); err != nil {
		t.Fatalf("issued token must parse: %v", err)
	}

	rr = postJSON(t, h.Login, "/api/v1/users/login", domain.LoginReq{Email: "a@x.com", Password: "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}

	rr = postJSON(t, h.Login, "/api/v1/users/login", domain.LoginReq{Email: "nobody@x.com", Password: "correct horse"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", rr.Code)
	}
}
