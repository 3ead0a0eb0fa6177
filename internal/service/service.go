package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/models"
	"github.com/patric-chuzhbe/wikisubs/internal/option"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

type userKeeper interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	CreateUser(ctx context.Context, email string, subscriptions []string) (*user.User, error)

	ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) (*user.User, error)

	CountUsers(ctx context.Context) (int64, error)
}

type catalogKeeper interface {
	GetSubscriptionOptions(ctx context.Context) ([]option.Option, error)

	CountSubscriptionOptions(ctx context.Context) (int64, error)

	SaveSubscriptionOptions(ctx context.Context, options []option.Option) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type userStorage interface {
	userKeeper
	catalogKeeper
	pinger
}

type tokenIssuer interface {
	Issue(email string) (string, error)
}

// ErrInvalidEmail is returned by SignIn for input that is not a well-formed email address.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrUserNotFound is returned when a signed-in email has no stored user.
var ErrUserNotFound = storage.ErrUserNotFound

type Service struct {
	db       userStorage
	issuer   tokenIssuer
	validate *validator.Validate
}

// SignInResult is what a successful sign-in hands back to the transport layer.
type SignInResult struct {
	Token string
	User  *user.User

	// Created is true when this sign-in registered the user.
	Created bool
}

func New(db userStorage, issuer tokenIssuer) *Service {
	return &Service{
		db:       db,
		issuer:   issuer,
		validate: validator.New(),
	}
}

// SignIn finds the user by email, registering it with the default subscriptions
// on first contact, and issues a fresh credential. An existing user keeps its subscriptions.
func (s *Service) SignIn(ctx context.Context, email string) (*SignInResult, error) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	created := false
	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		usr, err = s.db.CreateUser(ctx, email, nil)
		created = err == nil
		if errors.Is(err, storage.ErrUserExists) {
			// Lost the race with a concurrent sign-in for the same email.
			usr, err = s.db.GetUserByEmail(ctx, email)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/SignIn(): error while resolving the user: %w", err)
	}

	token, err := s.issuer.Issue(usr.Email)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/SignIn(): error while `s.issuer.Issue()` calling: %w", err)
	}

	return &SignInResult{
		Token:   token,
		User:    usr,
		Created: created,
	}, nil
}

// GetProfile returns the user an already verified credential belongs to.
func (s *Service) GetProfile(ctx context.Context, email string) (*user.User, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return usr, nil
}

func (s *Service) GetSubscriptions(ctx context.Context, email string) ([]string, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return user.CopySubscriptions(usr.Subscriptions), nil
}

// ReplaceSubscriptions overwrites the whole list, keeping order and duplicates as given.
// Ids are not checked against the catalog.
func (s *Service) ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) ([]string, error) {
	usr, err := s.db.ReplaceSubscriptions(ctx, email, user.CopySubscriptions(subscriptions))
	if err != nil {
		return nil, err
	}

	return user.CopySubscriptions(usr.Subscriptions), nil
}

// ListOptions returns the active catalog in name order, ready for the API.
func (s *Service) ListOptions(ctx context.Context) ([]models.SubscriptionOptionItem, error) {
	options, err := s.db.GetSubscriptionOptions(ctx)
	if err != nil {
		return nil, err
	}

	items := funk.Map(option.ActiveSortedByName(options), func(opt option.Option) models.SubscriptionOptionItem {
		return models.SubscriptionOptionItem{
			ID:          opt.Name,
			Name:        option.DisplayName(opt.Name),
			Description: opt.Description,
		}
	}).([]models.SubscriptionOptionItem)

	return items, nil
}

// SeedSubscriptionOptions stores the default catalog when the store holds no options at all.
// It reports whether anything was written.
func (s *Service) SeedSubscriptionOptions(ctx context.Context) (bool, error) {
	count, err := s.db.CountSubscriptionOptions(ctx)
	if err != nil {
		return false, fmt.Errorf("in internal/service/service.go/SeedSubscriptionOptions(): error while `s.db.CountSubscriptionOptions()` calling: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if err := s.db.SaveSubscriptionOptions(ctx, option.Defaults()); err != nil {
		return false, fmt.Errorf("in internal/service/service.go/SeedSubscriptionOptions(): error while `s.db.SaveSubscriptionOptions()` calling: %w", err)
	}

	return true, nil
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.db.CountUsers(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
