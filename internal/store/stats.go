package store

import (
	"context"
	"errors"
	"fmt"

	"panelbot/internal/domain"
)

type documentViewer interface {
	View(ctx context.Context, fn func(doc domain.Document) error) error
}

// Stats holds per-collection entry counts.
type Stats struct {
	Users     int `json:"users"`
	Admins    int `json:"admins"`
	Tasks     int `json:"tasks"`
	Ads       int `json:"ads"`
	Withdraws int `json:"withdraws"`
}

// StatsProvider exposes collection counts for diagnostics without leaking the
// document to callers.
type StatsProvider struct {
	viewer documentViewer
}

// NewStatsProvider constructs a StatsProvider backed by the provided store.
func NewStatsProvider(viewer documentViewer) *StatsProvider {
	return &StatsProvider{viewer: viewer}
}

// Stats counts every collection from a single load.
func (p *StatsProvider) Stats(ctx context.Context) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if p == nil || p.viewer == nil {
		return Stats{}, errors.New("stats provider is not initialized")
	}

	var stats Stats
	err := p.viewer.View(ctx, func(doc domain.Document) error {
		stats = Stats{
			Users:     len(doc.Users),
			Admins:    len(doc.Admins),
			Tasks:     len(doc.Tasks),
			Ads:       len(doc.Ads),
			Withdraws: len(doc.Withdraws),
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}

	return stats, nil
}
