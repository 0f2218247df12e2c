package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Reminder is a single reminder entry.
type Reminder struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}

// Note is a single note entry.
type Note struct {
	Title     string    `json:"title"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a single calendar entry.
type Event struct {
	Summary   string    `json:"summary"`
	When      string    `json:"when,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductivityStore is the in-memory backing for the built-in reminder, note
// and calendar tools. State lives for the process lifetime only.
type ProductivityStore struct {
	mu        sync.Mutex
	reminders []Reminder
	notes     []Note
	events    []Event
	now       func() time.Time
}

// NewProductivityStore builds an empty store.
func NewProductivityStore() *ProductivityStore {
	return &ProductivityStore{now: time.Now}
}

// RegisterBuiltins wires the store's tools into the registry under the names
// the planner emits.
func RegisterBuiltins(reg *Registry, store *ProductivityStore) error {
	tools := map[string]Tool{
		"create_reminder": store.createReminder,
		"list_reminders":  store.listReminders,
		"create_note":     store.createNote,
		"list_notes":      store.listNotes,
		"create_event":    store.createEvent,
		"get_events":      store.getEvents,
	}
	for name, tool := range tools {
		if err := reg.Register(name, tool); err != nil {
			return err
		}
	}
	return nil
}

func argString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

func (s *ProductivityStore) createReminder(_ context.Context, args map[string]any) (any, error) {
	name := argString(args, "name")
	if name == "" {
		return nil, fmt.Errorf("reminder needs a name")
	}
	s.mu.Lock()
	r := Reminder{Name: name, CreatedAt: s.now()}
	s.reminders = append(s.reminders, r)
	s.mu.Unlock()
	return r, nil
}

func (s *ProductivityStore) listReminders(context.Context, map[string]any) (any, error) {
	s.mu.Lock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	s.mu.Unlock()
	return out, nil
}

func (s *ProductivityStore) createNote(_ context.Context, args map[string]any) (any, error) {
	title := argString(args, "title")
	if title == "" {
		return nil, fmt.Errorf("note needs a title")
	}
	s.mu.Lock()
	n := Note{Title: title, Folder: argString(args, "folder_name"), CreatedAt: s.now()}
	s.notes = append(s.notes, n)
	s.mu.Unlock()
	return n, nil
}

func (s *ProductivityStore) listNotes(_ context.Context, args map[string]any) (any, error) {
	folder := argString(args, "folder_name")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		if folder == "" || n.Folder == folder {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *ProductivityStore) createEvent(_ context.Context, args map[string]any) (any, error) {
	summary := argString(args, "summary")
	if summary == "" {
		return nil, fmt.Errorf("event needs a summary")
	}
	s.mu.Lock()
	e := Event{Summary: summary, When: argString(args, "when"), CreatedAt: s.now()}
	s.events = append(s.events, e)
	s.mu.Unlock()
	return e, nil
}

func (s *ProductivityStore) getEvents(context.Context, map[string]any) (any, error) {
	s.mu.Lock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	s.mu.Unlock()
	return out, nil
}
