package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheetinsight-backend/internal/history"
	"sheetinsight-backend/internal/shared/auth"
	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/telemetry"
)

// Service manages accounts, credentials and tokens.
type Service struct {
	Repo    Repo
	Tokens  *auth.Tokens
	History *history.Service
	Now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, tokens *auth.Tokens, hist *history.Service) *Service {
	return &Service{Repo: repo, Tokens: tokens, History: hist, Now: time.Now}
}

// RegisterInput is a self-service signup.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput updates the caller's own account. Nil fields are unchanged.
type ProfileInput struct {
	Name        *string      `json:"name"`
	Email       *string      `json:"email"`
	Preferences *Preferences `json:"preferences"`
}

// AdminUpdateInput is an admin edit of another account. Empty fields are unchanged.
type AdminUpdateInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Register creates a user account and returns a signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, string, error) {
	u, err := s.create(ctx, in, RoleUser)
	if err != nil {
		return User{}, "", err
	}
	token, err := s.Tokens.Sign(u.ID, u.Role)
	if err != nil {
		return User{}, "", fmt.Errorf("sign token: %w", err)
	}
	s.History.Record(ctx, history.Record{
		UserID:       u.ID,
		Action:       history.ActionRegister,
		ResourceType: history.ResourceUser,
		ResourceID:   u.ID,
		Details:      "User registered",
	})
	return u, token, nil
}

// Login checks credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		telemetry.FromContext(ctx).Info("auth.login_failed", map[string]any{"user_id": u.ID})
		return User{}, "", ErrInvalidCredentials
	}
	if u.Status != StatusActive {
		return User{}, "", ErrInactive
	}
	token, err := s.Tokens.Sign(u.ID, u.Role)
	if err != nil {
		return User{}, "", fmt.Errorf("sign token: %w", err)
	}
	s.History.Record(ctx, history.Record{
		UserID:       u.ID,
		Action:       history.ActionLogin,
		ResourceType: history.ResourceUser,
		ResourceID:   u.ID,
		Details:      "User logged in",
	})
	return u, token, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.Repo.GetByID(ctx, id)
}

// UpdateProfile changes the caller's name, email or preferences.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < minNameLen {
			return User{}, fmt.Errorf("%w: Name must be at least 2 characters long", ErrInvalidInput)
		}
		u.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !emailPattern.MatchString(email) {
			return User{}, fmt.Errorf("%w: Please provide a valid email address", ErrInvalidInput)
		}
		u.Email = email
	}
	if in.Preferences != nil {
		if in.Preferences.Theme != "" {
			if !validTheme(in.Preferences.Theme) {
				return User{}, fmt.Errorf("%w: theme must be light or dark", ErrInvalidInput)
			}
			u.Preferences.Theme = in.Preferences.Theme
		}
		if lang := strings.TrimSpace(in.Preferences.Language); lang != "" {
			u.Preferences.Language = lang
		}
	}
	u.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	s.History.Record(ctx, history.Record{
		UserID:       u.ID,
		Action:       history.ActionUpdate,
		ResourceType: history.ResourceUser,
		ResourceID:   u.ID,
		Details:      "Profile updated",
	})
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, current); err != nil {
		return ErrWrongPassword
	}
	if len(next) < minPasswordLen {
		return fmt.Errorf("%w: Password must be at least 6 characters long", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash, s.now()); err != nil {
		return err
	}
	s.History.Record(ctx, history.Record{
		UserID:       id,
		Action:       history.ActionUpdate,
		ResourceType: history.ResourceUser,
		ResourceID:   id,
		Details:      "Password changed",
	})
	return nil
}

// LoadPrincipal resolves a token subject for the auth middleware.
func (s *Service) LoadPrincipal(ctx context.Context, id string) (middleware.Principal, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return middleware.Principal{}, middleware.ErrUnknownPrincipal
		}
		return middleware.Principal{}, err
	}
	return middleware.Principal{ID: u.ID, Role: u.Role, Status: u.Status}, nil
}

// List returns every account, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Repo.List(ctx)
}

// ListSince returns accounts created at or after since.
func (s *Service) ListSince(ctx context.Context, since time.Time) ([]User, error) {
	return s.Repo.ListSince(ctx, since)
}

// AdminUpdate edits another account's name, email, role or status.
func (s *Service) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput) (User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if in.Email != "" {
		email := normalizeEmail(in.Email)
		if !emailPattern.MatchString(email) {
			return User{}, fmt.Errorf("%w: Please provide a valid email address", ErrInvalidInput)
		}
		u.Email = email
	}
	if in.Role != "" {
		if !validRole(in.Role) {
			return User{}, fmt.Errorf("%w: role must be user or admin", ErrInvalidInput)
		}
		u.Role = in.Role
	}
	if in.Status != "" {
		if !validStatus(in.Status) {
			return User{}, fmt.Errorf("%w: status must be active, inactive or suspended", ErrInvalidInput)
		}
		u.Status = in.Status
	}
	u.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Delete removes an account. Callers cascade owned data first.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// EnsureAdmin creates an admin account, or promotes and reactivates the
// existing account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, in RegisterInput) (User, bool, error) {
	existing, err := s.Repo.GetByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case err == nil:
		existing.Role = RoleAdmin
		existing.Status = StatusActive
		existing.UpdatedAt = s.now()
		if err := s.Repo.Update(ctx, existing); err != nil {
			return User{}, false, err
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return User{}, false, err
	}
	u, err := s.create(ctx, in, RoleAdmin)
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role string) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	switch {
	case name == "" || email == "" || in.Password == "":
		return User{}, fmt.Errorf("%w: Please provide name, email and password", ErrInvalidInput)
	case len(name) < minNameLen:
		return User{}, fmt.Errorf("%w: Name must be at least 2 characters long", ErrInvalidInput)
	case !emailPattern.MatchString(email):
		return User{}, fmt.Errorf("%w: Please provide a valid email address", ErrInvalidInput)
	case len(in.Password) < minPasswordLen:
		return User{}, fmt.Errorf("%w: Password must be at least 6 characters long", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
		Preferences:  defaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
