package interfaces

import "context"

// EventType identifies pipeline telemetry events. Events never alter
// control flow; subscribers get an append-only feed.
type EventType string

const (
	EventJobScraped        EventType = "job:scraped"
	EventJobCompanyLookup  EventType = "job:company_lookup"
	EventJobWaitingCompany EventType = "job:waiting_company"
	EventJobExtraction     EventType = "job:extraction"
	EventJobScoring        EventType = "job:scoring"
	EventJobAnalysis       EventType = "job:analysis"
	EventJobSaved          EventType = "job:saved"
)

// Event is one telemetry record.
type Event struct {
	Type       EventType
	TrackingID string
	TaskID     string
	Payload    interface{}
}

// EventHandler handles a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process pub/sub bus.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	Close() error
}
