// Package account implements sign-up, sign-in and token upkeep on top of
// the user store and a session token store.
package account

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"clomery/internal/database"
	"clomery/internal/models"
	"clomery/internal/session"
	"clomery/internal/store"
)

var (
	// ErrSignUpFailed is returned when a sign-up could not be stored.
	ErrSignUpFailed = errors.New("sign up failed")
	// ErrSignInFailed is returned when a sign-in could not be completed.
	ErrSignInFailed = errors.New("sign in failed")
	// ErrInvalidCredentials is returned for an unknown name or a wrong password.
	ErrInvalidCredentials = errors.New("invalid name or password")
	// ErrNameTaken is returned when the name is already registered.
	ErrNameTaken = errors.New("name already taken")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already taken")
)

// Result is a signed-in user with the token issued for them.
type Result struct {
	User  *models.User   `json:"user"`
	Token *session.Token `json:"token"`
}

// Service runs account operations.
type Service struct {
	db     *sql.DB
	users  *store.UserStore
	tokens session.TokenStore
}

// NewService creates an account service.
func NewService(db *sql.DB, users *store.UserStore, tokens session.TokenStore) *Service {
	return &Service{db: db, users: users, tokens: tokens}
}

// SignUp registers a user and issues a token for client. The first user
// registered joins the admin group. The user row is rolled back when the
// token cannot be issued.
func (s *Service) SignUp(ctx context.Context, name, email, password, client string) (*Result, error) {
	var res *Result
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		users := s.users.WithTx(tx)

		taken, err := users.CheckName(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameTaken
		}
		if taken, err = users.CheckEmail(ctx, email); err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		u, err := users.Create(ctx, name, email, password)
		if err != nil {
			return err
		}
		n, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if n == 1 {
			if _, err := users.SetGroup(ctx, u.ID, models.AdminGroup); err != nil {
				return err
			}
			group := models.AdminGroup
			u.GroupID = &group
		}
		tok, err := s.tokens.Issue(ctx, u.ID, client)
		if err != nil {
			return err
		}
		res = &Result{User: u, Token: tok}
		return nil
	})
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrEmailTaken):
		return nil, err
	default:
		slog.Error("sign up failed", "name", name, "error", err)
		if res != nil {
			s.revokeQuietly(res.Token)
		}
		return nil, ErrSignUpFailed
	}
}

// SignIn checks name and password and issues a token for client.
func (s *Service) SignIn(ctx context.Context, name, password, client string) (*Result, error) {
	var res *Result
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := s.users.WithTx(tx).FindByName(ctx, name)
		if err != nil {
			return err
		}
		if u == nil || !s.users.CheckPassword(u, password) {
			return ErrInvalidCredentials
		}
		tok, err := s.tokens.Issue(ctx, u.ID, client)
		if err != nil {
			return err
		}
		res = &Result{User: u, Token: tok}
		return nil
	})
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, ErrInvalidCredentials):
		slog.Warn("sign in rejected", "name", name)
		return nil, err
	default:
		slog.Error("sign in failed", "name", name, "error", err)
		if res != nil {
			s.revokeQuietly(res.Token)
		}
		return nil, ErrSignInFailed
	}
}

// SignOut revokes a token. It reports false when the token was not live.
func (s *Service) SignOut(ctx context.Context, id, value string) (bool, error) {
	return s.tokens.Revoke(ctx, id, value)
}

// IsSignedIn returns the live token for id and value, or nil.
func (s *Service) IsSignedIn(ctx context.Context, id, value string) (*session.Token, error) {
	return s.tokens.Verify(ctx, id, value)
}

// HeartBeat extends the lifetime of a live token.
func (s *Service) HeartBeat(ctx context.Context, id, value string) (bool, error) {
	return s.tokens.Refresh(ctx, id, value)
}

// SetAvatar points the avatar of user id at a stored resource and returns
// the updated user, or nil when no such user exists.
func (s *Service) SetAvatar(ctx context.Context, id, resourceID int64) (*models.User, error) {
	found, err := s.users.SetAvatar(ctx, id, resourceID)
	if err != nil || !found {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// revokeQuietly drops a token issued inside a transaction that did not commit.
func (s *Service) revokeQuietly(t *session.Token) {
	if t == nil {
		return
	}
	if _, err := s.tokens.Revoke(context.Background(), t.ID, t.Value); err != nil {
		slog.Warn("revoke orphaned token", "id", t.ID, "error", err)
	}
}
