package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"panelbot/internal/domain"
	"panelbot/internal/logging"
)

type documentUpdater interface {
	Update(ctx context.Context, fn func(doc *domain.Document) (bool, error)) error
}

// Bootstrapper seeds configured admin ids into the admins collection.
type Bootstrapper struct {
	store  documentUpdater
	logger *logrus.Entry
}

// NewBootstrapper constructs a Bootstrapper for the provided store.
func NewBootstrapper(store documentUpdater, logger *logrus.Entry) *Bootstrapper {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Bootstrapper{
		store:  store,
		logger: logger,
	}
}

// EnsureAdmins appends every id in ids that is not already an admin. Existing
// admins are never removed. It returns the number of ids added.
func (b *Bootstrapper) EnsureAdmins(ctx context.Context, ids []domain.UserID) (int, error) {
	if b == nil || b.store == nil {
		return 0, errors.New("admin bootstrapper is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	added := 0
	err := b.store.Update(ctx, func(doc *domain.Document) (bool, error) {
		for _, id := range ids {
			if id == 0 || doc.IsAdmin(id) {
				continue
			}
			doc.Admins = append(doc.Admins, id)
			added++
		}
		return added > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("ensure admins: %w", err)
	}

	b.logger.WithFields(logging.Fields{
		"event":      "admin_bootstrap",
		"configured": len(ids),
		"added":      added,
	}).Info("ensured configured admins")

	return added, nil
}
