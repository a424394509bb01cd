package models

import "time"

// EventType tags a registry event.
type EventType string

const (
	EventRegister    EventType = "register"
	EventUnregister  EventType = "unregister"
	EventStateChange EventType = "state_change"
	EventInteraction EventType = "interaction"
	EventLink        EventType = "link"
)

// Event is delivered to registry subscribers after each mutation.
// Subscribers only observe events emitted after they subscribe;
// there is no replay.
type Event struct {
	Type     EventType `json:"type"`
	EntityID string    `json:"entity_id"`
	// PeerID is set for link events: the id of the other endpoint.
	PeerID string `json:"peer_id,omitempty"`
	// State is set for state-change events: the new state.
	State State     `json:"state,omitempty"`
	Time  time.Time `json:"time"`
}
