package publishers

import "time"

// Event types emitted by the engine.
const (
	EventGameDiscovered = "game_discovered"
	EventFeedPublished  = "feed_published"
)

// Event represents the payload published downstream.
type Event struct {
	Type        string    `json:"type"`
	AppID       int       `json:"appid"`
	Name        string    `json:"name"`
	EarlyAccess bool      `json:"early_access"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for the given type and title.
func NewEvent(eventType string, appID int, name string, earlyAccess bool) Event {
	return Event{
		Type:        eventType,
		AppID:       appID,
		Name:        name,
		EarlyAccess: earlyAccess,
		OccurredAt:  time.Now().UTC(),
	}
}
