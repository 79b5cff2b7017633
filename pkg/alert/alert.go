package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// Notification is the evening wrap-up sent to alert destinations.
type Notification struct {
	Title   string         `json:"title"`
	Date    string         `json:"date"`
	Summary string         `json:"summary"`
	HTML    string         `json:"html,omitempty"`
	Stories []corpus.Story `json:"stories"`
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
	return len(m.notifiers) > 0
}

// Names lists the registered notifiers.
func (m *Manager) Names() []string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Broadcast sends a notification to all registered notifiers. A failing
// notifier does not stop the others.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func topStories(stories []corpus.Story, limit int) []corpus.Story {
	if len(stories) > limit {
		return stories[:limit]
	}
	return stories
}
