// Package notification keeps the in-app notification list and announces
// each new entry to connected clients.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/dental/internal/platform/kvstore"
	"github.com/smilecare/dental/internal/platform/websocket"
)

// Key is the state-store key holding the notification list.
const Key = "dental_notifications"

var ErrInvalidType = errors.New("invalid notification type")

// Announcer is told about every notification after it has been stored.
// Announcement failures never undo the create.
type Announcer interface {
	Announce(ctx context.Context, n Notification) error
}

// ToastPublisher is the part of the websocket hub the toast announcer uses.
type ToastPublisher interface {
	PublishToast(ctx context.Context, t websocket.Toast) error
}

// ToastAnnouncer turns notifications into toasts. Errors use the
// destructive variant.
type ToastAnnouncer struct {
	Publisher ToastPublisher
}

func (a ToastAnnouncer) Announce(ctx context.Context, n Notification) error {
	variant := "default"
	if n.Type == TypeError {
		variant = "destructive"
	}
	return a.Publisher.PublishToast(ctx, websocket.Toast{
		Title:       n.Title,
		Description: n.Message,
		Variant:     variant,
	})
}

// ChangePublisher broadcasts list changes. *websocket.Hub satisfies it.
type ChangePublisher interface {
	Publish(ctx context.Context, topic, eventType string, payload any) error
}

// Change is published on the notifications topic after every committed
// mutation.
type Change struct {
	Operation   string `json:"operation"`
	Total       int    `json:"total"`
	UnreadCount int    `json:"unreadCount"`
}

// ChangedEvent is the event type of a Change.
const ChangedEvent = "notifications.changed"

// MutationRecorder matches clinic.MutationRecorder.
type MutationRecorder interface {
	RecordMutation(collection, operation string)
	RecordPersistFailure(collection string)
}

type Options struct {
	Logger    zerolog.Logger
	Recorder  MutationRecorder
	Announcer Announcer
	Changes   ChangePublisher
	Now       func() time.Time
	NewID     func() string
}

// Store owns the notification list, newest first. Every mutation persists
// the whole list before it becomes visible.
type Store struct {
	mu    sync.Mutex
	kv    kvstore.Store
	items []Notification

	log      zerolog.Logger
	rec      MutationRecorder
	announce Announcer
	changes  ChangePublisher
	now      func() time.Time
	newID    func() string
}

// Open loads the list from kv, writing the two seed notifications when the
// key is absent.
func Open(ctx context.Context, kv kvstore.Store, opts Options) (*Store, error) {
	s := &Store{
		kv:       kv,
		log:      opts.Logger,
		rec:      opts.Recorder,
		announce: opts.Announcer,
		changes:  opts.Changes,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return "notif_" + uuid.NewString() }
	}

	var items []Notification
	ok, err := kvstore.GetJSON(ctx, kv, Key, &items)
	if err != nil {
		return nil, err
	}
	if !ok {
		items = Seed(s.now())
		if err := kvstore.PutJSON(ctx, kv, Key, items); err != nil {
			return nil, err
		}
		s.log.Info().Int("count", len(items)).Msg("seeded notifications")
	}
	s.items = items
	return s, nil
}

func (s *Store) commit(ctx context.Context, next []Notification, op string) error {
	if err := kvstore.PutJSON(ctx, s.kv, Key, next); err != nil {
		if s.rec != nil {
			s.rec.RecordPersistFailure("notifications")
		}
		s.log.Error().Err(err).Str("operation", op).Msg("persist notifications failed")
		return fmt.Errorf("persist notifications: %w", err)
	}
	s.items = next
	if s.rec != nil {
		s.rec.RecordMutation("notifications", op)
	}
	s.publishChange(ctx, op)
	return nil
}

// publishChange runs with s.mu held. The hub never blocks on slow clients.
func (s *Store) publishChange(ctx context.Context, op string) {
	if s.changes == nil {
		return
	}
	c := Change{Operation: op, Total: len(s.items), UnreadCount: unread(s.items)}
	if err := s.changes.Publish(ctx, websocket.NotificationsTopic, ChangedEvent, c); err != nil {
		s.log.Warn().Err(err).Str("operation", op).Msg("publish notification change failed")
	}
}

func unread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// List returns the notifications, newest first.
func (s *Store) List(_ context.Context) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.items...)
}

// UnreadCount is derived from the current list on every call.
func (s *Store) UnreadCount(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unread(s.items)
}

// Create prepends a new unread notification, persists the list, and then
// announces it.
func (s *Store) Create(ctx context.Context, title, message string, typ Type, actionURL string) (Notification, error) {
	if !typ.Valid() {
		return Notification{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	s.mu.Lock()
	n := Notification{
		ID:        s.newID(),
		Title:     title,
		Message:   message,
		Type:      typ,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		ActionURL: actionURL,
	}
	next := make([]Notification, 0, len(s.items)+1)
	next = append(next, n)
	next = append(next, s.items...)
	err := s.commit(ctx, next, "create")
	s.mu.Unlock()
	if err != nil {
		return Notification{}, err
	}

	if s.announce != nil {
		if err := s.announce.Announce(ctx, n); err != nil {
			s.log.Warn().Err(err).Str("notification", n.ID).Msg("announce notification failed")
		}
	}
	return n, nil
}

// Notify creates a notification from a plain type string, for callers that
// do not import this package's types.
func (s *Store) Notify(ctx context.Context, title, message, kind string) error {
	_, err := s.Create(ctx, title, message, Type(kind), "")
	return err
}

// MarkRead is a no-op for an unknown id.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, it := range s.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || s.items[idx].Read {
		return nil
	}
	next := append([]Notification(nil), s.items...)
	next[idx].Read = true
	return s.commit(ctx, next, "mark_read")
}

func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Notification, len(s.items))
	for i, it := range s.items {
		it.Read = true
		next[i] = it
	}
	return s.commit(ctx, next, "mark_all_read")
}

// Delete is a no-op for an unknown id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Notification, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(s.items) {
		return nil
	}
	return s.commit(ctx, next, "delete")
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []Notification{}, "clear")
}
