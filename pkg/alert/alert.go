// Package alert posts the featured companies of a scorecard run to chat and
// webhook destinations.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/scorecard/pkg/scorecard"
)

// Notification is the data sent to alert destinations.
type Notification struct {
	Title     string              `json:"title"`
	Body      string              `json:"body"`
	RunID     string              `json:"run_id"`
	Companies []scorecard.Company `json:"companies"`
}

// FromScorecard builds a notification listing the featured companies.
func FromScorecard(sc *scorecard.Scorecard) *Notification {
	featured := sc.Featured()
	return &Notification{
		Title:     fmt.Sprintf("Golden-Triangle Scorecard: top %d", sc.FeaturedCutoff),
		Body:      fmt.Sprintf("%d featured of %d companies", len(featured), len(sc.Companies)),
		RunID:     sc.RunID,
		Companies: featured,
	}
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
