package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/store"
	"github.com/quillworks/quill/pkg/cryptox"
	"github.com/quillworks/quill/pkg/idx"
	"github.com/quillworks/quill/pkg/jwtx"
	"github.com/quillworks/quill/pkg/slogx"
)

// UserService handles registration and credential exchange. Login hands
// back a signed bearer token; no session state is kept anywhere.
type UserService struct {
	Store store.Store
	Codec *jwtx.Codec
}

// Register creates a new author account. The password is hashed before it
// ever reaches the store.
func (s *UserService) Register(ctx context.Context, username, displayName, password string) error {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidRequest
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.Store.Users().CreateUser(ctx, domain.User{
		ID:           string(idx.New()),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Info("registration rejected, username taken", slog.String("username", username))
			return ErrUsernameTaken
		}
		return err
	}

	l.Info("user registered", slog.String("username", username))
	return nil
}

// Login verifies the username/password pair and mints a bearer token whose
// subject is the username. Unknown users and wrong passwords collapse into
// the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Equalize timing with the wrong-password path.
			_ = cryptox.VerifyPassword(password, dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Info("login failed", slog.String("username", username))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	token, err := s.Codec.Issue(user.Username, time.Now())
	if err != nil {
		return "", err
	}

	l.Info("login succeeded", slog.String("username", username))
	return token, nil
}

// dummyHash is a well-formed argon2id encoding used for unknown users.
const dummyHash ="$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
