// Package notification announces new sightings and achievements through
// shoutrrr push services and MQTT events.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// EventType names an event published to MQTT
type EventType string

const (
	EventSightingSaved    EventType = "sighting.saved"
	EventSightingsDeleted EventType = "sighting.deleted"
)

// Event is the MQTT payload of a logbook change.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Time       time.Time `json:"time"`
	Species    string    `json:"species,omitempty"`
	Ordinal    int       `json:"ordinal,omitempty"`
	Family     string    `json:"family,omitempty"`
	Sex        string    `json:"sex,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lon        *float64  `json:"lon,omitempty"`
	Place      string    `json:"place,omitempty"`
	Catalogued bool      `json:"catalogued,omitempty"`
	Deleted    []string  `json:"deleted,omitempty"`
	Unlocked   []string  `json:"unlocked,omitempty"`
	Level      int       `json:"level,omitempty"`
}

// SightingSaved builds the event of a new sighting. unlocked lists the
// achievements the save unlocked.
func SightingSaved(s sighting.Sighting, family string, unlocked []string, level int) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       EventSightingSaved,
		Time:       s.RecordedAt,
		Species:    s.SpeciesName,
		Family:     family,
		Sex:        string(s.Sex),
		Lat:        s.Location.Lat,
		Lon:        s.Location.Lon,
		Place:      s.Location.Place,
		Catalogued: s.Catalogued,
		Unlocked:   unlocked,
		Level:      level,
	}
	if s.Catalogued {
		ev.Ordinal = s.Ordinal
	}
	return ev
}

// SightingsDeleted builds the event of a bulk delete
func SightingsDeleted(names []string, at time.Time) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    EventSightingsDeleted,
		Time:    at,
		Deleted: names,
	}
}

// Message renders the push title and body of ev. ok is false for events
// that are not pushed.
func Message(ev Event) (title, body string, ok bool) {
	if ev.Type != EventSightingSaved {
		return "", "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s 등록 완료!", ev.Species)
	if ev.Ordinal > 0 {
		fmt.Fprintf(&b, " (No.%03d)", ev.Ordinal)
	}
	if len(ev.Unlocked) > 0 {
		fmt.Fprintf(&b, "\n🏅 업적 달성: %s", strings.Join(ev.Unlocked, ", "))
	}
	if ev.Level > 0 {
		fmt.Fprintf(&b, "\n현재 레벨: Lv.%d", ev.Level)
	}
	return "새 도감 등록", b.String(), true
}

// Pusher delivers a human readable notification
type Pusher interface {
	Push(ctx context.Context, title, message string) error
}

// Publisher delivers a payload to a topic; an empty topic means the default.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// Service fans events out to the configured channels. Either channel may be nil.
type Service struct {
	pusher    Pusher
	publisher Publisher
	log       logger.Logger
	onPush    func(error)
}

// Option configures a Service
type Option func(*Service)

// WithPushObserver is called after every push attempt
func WithPushObserver(fn func(error)) Option {
	return func(s *Service) { s.onPush = fn }
}

// NewService creates a Service
func NewService(pusher Pusher, publisher Publisher, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	s := &Service{pusher: pusher, publisher: publisher, log: log.Module("notification")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s != nil && (s.pusher != nil || s.publisher != nil)
}

// Announce publishes ev and pushes its message. Both channels are attempted;
// the returned error joins their failures.
func (s *Service) Announce(ctx context.Context, ev Event) error {
	if !s.Enabled() {
		return nil
	}

	var errs []error
	if s.publisher != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			return errors.New(err).Component("notification").Category(errors.CategoryGeneric).Build()
		}
		if err := s.publisher.Publish(ctx, "", string(payload)); err != nil {
			s.log.Warn("failed to publish event", logger.String("type", string(ev.Type)), logger.Error(err))
			errs = append(errs, err)
		}
	}

	if s.pusher != nil {
		if title, body, ok := Message(ev); ok {
			err := s.pusher.Push(ctx, title, body)
			if s.onPush != nil {
				s.onPush(err)
			}
			if err != nil {
				s.log.Warn("failed to send push notification", logger.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
