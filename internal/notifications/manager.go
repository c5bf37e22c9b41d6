// Package notifications sends desktop notifications about export rounds
package notifications

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/mrcode/nightscout-autotune/internal/models"
)

// Outcome kinds
const (
	kindExported = "exported"
	kindInvalid  = "invalid"
	kindFailed   = "failed"
)

// repeatWindow suppresses identical failure notifications sent in quick succession
const repeatWindow = 5 * time.Minute

// Outcome describes the result of one export round
type Outcome struct {
	Profile string // Tuned profile name
	Format  string // "oref", "nightscout" or "store"
	Path    string // Output file, empty for stdout
	Valid   bool   // Source profile passed validation
	Err     error
}

// Manager handles export notifications
type Manager struct {
	settings *models.Settings
	send     func(title, message, icon string) error
	now      func() time.Time
	lastSent map[string]time.Time
	mu       sync.Mutex
}

// NewManager creates a new notification manager
func NewManager(settings *models.Settings) *Manager {
	return &Manager{
		settings: settings,
		send:     beeep.Notify,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Notify reports an export outcome if notifications are enabled.
// Repeated failures for the same profile are only reported once per window.
func (m *Manager) Notify(o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil || !m.settings.Notify {
		return nil
	}

	kind := classify(o)
	key := kind + ":" + o.Profile
	if kind != kindExported {
		if last, ok := m.lastSent[key]; ok && m.now().Sub(last) < repeatWindow {
			return nil
		}
	}

	title, message := formatNotification(o, kind)
	if err := m.send(title, message, ""); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}

	m.lastSent[key] = m.now()
	return nil
}

// classify determines the outcome kind
func classify(o Outcome) string {
	switch {
	case o.Err != nil:
		return kindFailed
	case !o.Valid:
		return kindInvalid
	default:
		return kindExported
	}
}

// formatNotification creates the notification title and message
func formatNotification(o Outcome, kind string) (string, string) {
	target := "stdout"
	if o.Path != "" {
		target = o.Path
	}

	switch kind {
	case kindFailed:
		return "⚠️ Autotune export failed",
			fmt.Sprintf("%s export of %q failed: %v", o.Format, o.Profile, o.Err)
	case kindInvalid:
		return "⚠️ Autotune profile invalid",
			fmt.Sprintf("Profile %q failed validation; %s export written to %s with empty values", o.Profile, o.Format, target)
	default:
		return "✅ Autotune export",
			fmt.Sprintf("Profile %q exported as %s to %s", o.Profile, o.Format, target)
	}
}

// ClearState forgets suppressed failures for a profile, or for all profiles when empty
func (m *Manager) ClearState(profile string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile == "" {
		m.lastSent = make(map[string]time.Time)
		return
	}
	for _, kind := range []string{kindFailed, kindInvalid, kindExported} {
		delete(m.lastSent, kind+":"+profile)
	}
}

// SendTestNotification sends a test notification, even when notifications are disabled
func (m *Manager) SendTestNotification() error {
	if err := m.send("Nightscout Autotune", "Test notification - notifications are working!", ""); err != nil {
		return fmt.Errorf("sending test notification: %w", err)
	}
	return nil
}
