package events

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a progression event for downstream consumers
// (analytics, notification content selection).
type EventType string

const (
	EventEnrollmentCreated  EventType = "enrollment_created"
	EventDayCompleted       EventType = "day_completed"
	EventProgrammeCompleted EventType = "programme_completed"
	EventFastingTypeChanged EventType = "fasting_type_changed"
)

// Event is a fire-and-forget notification emitted by the progression
// engine. Delivery failures never affect the operation that produced it.
type Event struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	UserID       uint                   `json:"user_id"`
	EnrollmentID uint                   `json:"enrollment_id"`
	ProgrammeID  uint                   `json:"programme_id"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// New builds an event with a fresh ID and timestamp.
func New(eventType EventType, userID, enrollmentID, programmeID uint, payload map[string]interface{}) Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return Event{
		ID:           uuid.New().String(),
		Type:         eventType,
		UserID:       userID,
		EnrollmentID: enrollmentID,
		ProgrammeID:  programmeID,
		Payload:      payload,
		CreatedAt:    time.Now(),
	}
}

// Sink receives progression events. Implementations must not block the
// caller for long and must swallow their own failures.
type Sink interface {
	Emit(event Event)
}

// LogSink writes events to the application log.
type LogSink struct{}

func (LogSink) Emit(event Event) {
	log.Printf("[EVENT] %s user=%d enrollment=%d programme=%d", event.Type, event.UserID, event.EnrollmentID, event.ProgrammeID)
}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(event Event) {
	for _, s := range m {
		s.Emit(event)
	}
}
