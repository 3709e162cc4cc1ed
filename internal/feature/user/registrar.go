// Package user provides user registration and listing for the web panel.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"panelbot/internal/apperrors"
	"panelbot/internal/domain"
	"panelbot/internal/logging"
)

const maxNameLength = 256

type documentStore interface {
	View(ctx context.Context, fn func(doc domain.Document) error) error
	Update(ctx context.Context, fn func(doc *domain.Document) (bool, error)) error
}

// RegisterRequest is the payload accepted by Register.
type RegisterRequest struct {
	UserID domain.UserID `json:"user_id" validate:"required"`
	Name   string        `json:"name" validate:"max=256"`
}

// Registrar ensures users exist in the store and lists them for admins.
type Registrar struct {
	store    documentStore
	validate *validator.Validate
	logger   *logrus.Entry
	now      func() time.Time
}

// NewRegistrar constructs a Registrar over the provided store.
func NewRegistrar(store documentStore, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Register appends a user record when none exists for req.UserID. Repeat calls
// are no-ops that keep the original record. It reports whether a record was
// created.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest) (bool, error) {
	if r == nil || r.store == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := r.validateRequest(req); err != nil {
		return false, err
	}

	created := false
	err := r.store.Update(ctx, func(doc *domain.Document) (bool, error) {
		if _, exists := doc.FindUser(req.UserID); exists {
			return false, nil
		}

		doc.Users = append(doc.Users, domain.User{
			UserID:    req.UserID,
			Name:      req.Name,
			CreatedAt: r.now().UTC().Truncate(time.Millisecond),
			Balance:   0,
		})
		created = true
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("register user: %w", err)
	}

	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": int64(req.UserID),
		}).Info("registered new user")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": int64(req.UserID),
	}).Debug("user already registered")

	return false, nil
}

// List returns every registered user in insertion order.
func (r *Registrar) List(ctx context.Context) ([]domain.User, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	users := []domain.User{}
	err := r.store.View(ctx, func(doc domain.Document) error {
		users = append(users, doc.Users...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *Registrar) validateRequest(req RegisterRequest) error {
	err := r.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}

	return fmt.Errorf("%w: %s", apperrors.ErrBadRequest, strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch field {
	case "UserID":
		field = "user_id"
	case "Name":
		field = "name"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %d characters", field, maxNameLength)
	default:
		return field + " is invalid"
	}
}
