package notifications

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrcode/nightscout-autotune/internal/models"
)

type sent struct {
	title   string
	message string
}

// newTestManager returns a manager that records notifications instead of sending them
func newTestManager(notify bool) (*Manager, *[]sent, *time.Time) {
	settings := models.DefaultSettings()
	settings.Notify = notify

	var log []sent
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	m := NewManager(settings)
	m.send = func(title, message, _ string) error {
		log = append(log, sent{title, message})
		return nil
	}
	m.now = func() time.Time { return now }
	return m, &log, &now
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		expected string
	}{
		{"Exported", Outcome{Valid: true}, kindExported},
		{"Invalid profile", Outcome{Valid: false}, kindInvalid},
		{"Failed", Outcome{Valid: true, Err: errors.New("boom")}, kindFailed},
		{"Failure wins over invalid", Outcome{Err: errors.New("boom")}, kindFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.outcome); got != tt.expected {
				t.Errorf("classify() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestFormatNotification(t *testing.T) {
	tests := []struct {
		kind          string
		outcome       Outcome
		expectedTitle string
		contains      string
	}{
		{kindExported, Outcome{Profile: "Default", Format: "oref", Path: "/tmp/out.json", Valid: true}, "✅ Autotune export", "/tmp/out.json"},
		{kindExported, Outcome{Profile: "Default", Format: "oref", Valid: true}, "✅ Autotune export", "stdout"},
		{kindInvalid, Outcome{Profile: "Default", Format: "store"}, "⚠️ Autotune profile invalid", "failed validation"},
		{kindFailed, Outcome{Profile: "Default", Format: "nightscout", Err: errors.New("NaN basal")}, "⚠️ Autotune export failed", "NaN basal"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			title, message := formatNotification(tt.outcome, tt.kind)
			if title != tt.expectedTitle {
				t.Errorf("title = %s, want %s", title, tt.expectedTitle)
			}
			if !strings.Contains(message, tt.contains) {
				t.Errorf("message %q should contain %q", message, tt.contains)
			}
		})
	}
}

func TestManager_Disabled(t *testing.T) {
	m, log, _ := newTestManager(false)

	if err := m.Notify(Outcome{Profile: "Default", Valid: true}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(*log) != 0 {
		t.Errorf("expected no notification when disabled, got %d", len(*log))
	}
}

func TestManager_SuppressesRepeatedFailures(t *testing.T) {
	m, log, now := newTestManager(true)
	failure := Outcome{Profile: "Default", Format: "oref", Err: errors.New("boom")}

	_ = m.Notify(failure)
	_ = m.Notify(failure)
	if len(*log) != 1 {
		t.Fatalf("expected repeated failure to be suppressed, got %d notifications", len(*log))
	}

	*now = now.Add(repeatWindow)
	_ = m.Notify(failure)
	if len(*log) != 2 {
		t.Errorf("expected failure after the window to be sent, got %d notifications", len(*log))
	}

	// Successes are always reported
	_ = m.Notify(Outcome{Profile: "Default", Valid: true})
	_ = m.Notify(Outcome{Profile: "Default", Valid: true})
	if len(*log) != 4 {
		t.Errorf("expected every success to be sent, got %d notifications", len(*log))
	}
}

func TestManager_SendError(t *testing.T) {
	m, _, _ := newTestManager(true)
	m.send = func(string, string, string) error { return errors.New("no dbus") }

	err := m.Notify(Outcome{Profile: "Default", Valid: true})
	if err == nil || !strings.Contains(err.Error(), "no dbus") {
		t.Errorf("Notify() error = %v, want wrapped send error", err)
	}
}

func TestManager_ClearState(t *testing.T) {
	m, log, _ := newTestManager(true)

	_ = m.Notify(Outcome{Profile: "A", Err: errors.New("x")})
	_ = m.Notify(Outcome{Profile: "B", Err: errors.New("x")})

	m.ClearState("A")
	_ = m.Notify(Outcome{Profile: "A", Err: errors.New("x")})
	_ = m.Notify(Outcome{Profile: "B", Err: errors.New("x")})
	if len(*log) != 3 {
		t.Errorf("expected only A to be re-sent, got %d notifications", len(*log))
	}

	m.ClearState("")
	if len(m.lastSent) != 0 {
		t.Error("All state should be cleared")
	}
}

func TestManager_SendTestNotification(t *testing.T) {
	m, log, _ := newTestManager(false)

	if err := m.SendTestNotification(); err != nil {
		t.Fatalf("SendTestNotification() error = %v", err)
	}
	if len(*log) != 1 || (*log)[0].title != "Nightscout Autotune" {
		t.Errorf("expected one test notification regardless of settings, got %+v", *log)
	}

	m.send = func(string, string, string) error { return errors.New("no dbus") }
	if err := m.SendTestNotification(); err == nil || !strings.Contains(err.Error(), "no dbus") {
		t.Errorf("SendTestNotification() error = %v, want wrapped send error", err)
	}
}
