// Package notify turns editor alerts into desktop notifications.
package notify

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/photoedit/internal/platform"
)

// Event identifies a notification trigger. Values match the editor alert kinds.
type Event string

const (
	// EventSave is emitted when a composed photo has been stored.
	EventSave Event = "save"
	// EventLoad is emitted when a photo has been opened.
	EventLoad Event = "load"
	// EventError is emitted for failures the user should know about.
	EventError Event = "error"
)

// Events lists every known event.
var Events = []Event{EventSave, EventLoad, EventError}

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: platform.AppName,
		Events: map[Event]EventPreference{
			EventSave:  {Template: "%s"},
			EventLoad:  {Template: "%s"},
			EventError: {Template: "%s"},
		},
	}
}

// LoadPreferences reads overrides from PHOTOEDIT_NOTIFY_TITLE and
// PHOTOEDIT_NOTIFY_<EVENT>_TEXT.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("PHOTOEDIT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	for _, event := range Events {
		key := "PHOTOEDIT_NOTIFY_" + strings.ToUpper(string(event)) + "_TEXT"
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			prefs.Events[event] = EventPreference{Template: v}
		}
	}
	return prefs
}

// Notifier sends OS-level notifications based on the configured preferences.
// It implements editor.Alerter.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    func(title, body string, opts platform.Options) error
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), send: platform.Notify}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Alert notifies about message if its kind is enabled. Every alert is logged
// whether or not a notification is shown.
func (n *Notifier) Alert(kind, message string) {
	event := Event(kind)
	entry := logrus.WithFields(logrus.Fields{"component": "notify", "event": kind})
	if event == EventError {
		entry.Warn(message)
	} else {
		entry.Info(message)
	}
	n.dispatch(event, message, platform.Options{Urgent: event == EventError})
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil || n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if err := n.send(n.prefs.Title, body, opts); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("notification failed")
	}
}

func (n *Notifier) template(event Event) string {
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}
