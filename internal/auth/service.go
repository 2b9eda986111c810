// Package auth provides password login, API tokens and role-based access
// control for the dashboard API.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/hausmeister/internal/storage"
)

// Roles known to the system. Additional grants can be persisted through
// the storage-backed Casbin adapter.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// Objects guarded by the enforcer.
const (
	ObjectTenants  = "tenants"
	ObjectBilling  = "billing"
	ObjectSettings = "settings"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	storage  storage.Storage
	enforcer *casbin.Enforcer
}

func NewService(s storage.Storage) (*Service, error) {
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`)
	if err != nil {
		return nil, fmt.Errorf("build rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, fmt.Errorf("build enforcer: %w", err)
	}

	// Builtin role grants. Managers run the day-to-day bookkeeping but
	// cannot touch settings or user accounts.
	e.AddPolicy(RoleAdmin, "*", "*")
	e.AddPolicy(RoleManager, ObjectTenants, "read")
	e.AddPolicy(RoleManager, ObjectTenants, "write")
	e.AddPolicy(RoleManager, ObjectBilling, "read")
	e.AddPolicy(RoleManager, ObjectBilling, "write")
	e.AddPolicy(RoleViewer, ObjectTenants, "read")
	e.AddPolicy(RoleViewer, ObjectBilling, "read")

	return &Service{storage: s, enforcer: e}, nil
}

// Authenticate checks a username/password pair against the stored bcrypt
// hash. The error never reveals whether the user exists.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, username, email, password, role string) (*storage.User, error) {
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("user already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := storage.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.enforcer.AddGroupingPolicy(u.ID, role)

	return &u, nil
}

// CreateToken mints a bearer token for API access. Only the SHA-256 of
// the raw token is stored; the raw value is returned exactly once.
func (s *Service) CreateToken(ctx context.Context, userID, name, role string, expiresAt *time.Time) (*storage.Token, string, error) {
	rawToken := uuid.New().String() + uuid.New().String()

	t := storage.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(rawToken),
		Role:      role,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := s.storage.CreateToken(ctx, t); err != nil {
		return nil, "", err
	}
	return &t, rawToken, nil
}

func (s *Service) ValidateToken(ctx context.Context, rawToken string) (*storage.Token, error) {
	t, err := s.storage.GetTokenByHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("invalid token")
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	go s.storage.UpdateTokenLastUsed(context.Background(), t.ID)

	return t, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
