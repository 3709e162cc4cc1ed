// Package admin provides the admin stats command and startup seeding of the
// admins collection.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"panelbot/internal/domain"
	"panelbot/internal/logging"
)

// RefusalMessage is sent to invokers that are not listed as admins.
const RefusalMessage = "You are not admin."

type documentViewer interface {
	View(ctx context.Context, fn func(doc domain.Document) error) error
}

// Report is the outcome of an admin stats request.
type Report struct {
	Allowed bool
	Users   int
}

// Reply renders the report as the chat message sent back to the invoker.
func (r Report) Reply() string {
	if !r.Allowed {
		return RefusalMessage
	}
	return "Users: " + strconv.Itoa(r.Users)
}

// Reporter answers admin stats requests from a single document load.
type Reporter struct {
	store  documentViewer
	logger *logrus.Entry
}

// NewReporter constructs a Reporter over the provided store.
func NewReporter(store documentViewer, logger *logrus.Entry) *Reporter {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Reporter{
		store:  store,
		logger: logger,
	}
}

// Report checks admin membership for invokerID and, when allowed, includes the
// current user count.
func (r *Reporter) Report(ctx context.Context, invokerID domain.UserID) (Report, error) {
	if r == nil || r.store == nil {
		return Report{}, errors.New("admin reporter is not initialized")
	}
	if ctx == nil {
		return Report{}, errors.New("context is required")
	}

	var report Report
	err := r.store.View(ctx, func(doc domain.Document) error {
		if !doc.IsAdmin(invokerID) {
			return nil
		}
		report = Report{Allowed: true, Users: len(doc.Users)}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("admin report: %w", err)
	}

	r.logger.WithFields(logging.Fields{
		"event":   "admin_report",
		"user_id": int64(invokerID),
		"allowed": report.Allowed,
	}).Info("admin stats requested")

	return report, nil
}
