// Package models defines the core domain models for graph-based workflow automation.
package models

import "time"

// TriggerEvent names a domain occurrence that starts workflow matching.
type TriggerEvent string

// Built-in trigger event catalog. Payload shapes are owned by the emitting
// side of the platform; the engine treats payloads as opaque context seeds.
const (
	TriggerGalleryCreated         TriggerEvent = "gallery_created"
	TriggerGalleryDelivered       TriggerEvent = "gallery_delivered"
	TriggerGalleryReviewSubmitted TriggerEvent = "gallery_review_submitted"
	TriggerGalleryExpiring        TriggerEvent = "gallery_expiring"
	TriggerBookingCreated         TriggerEvent = "booking_created"
	TriggerBookingConfirmed       TriggerEvent = "booking_confirmed"
	TriggerBookingCancelled       TriggerEvent = "booking_cancelled"
	TriggerClientCreated          TriggerEvent = "client_created"
)

// KnownTriggerEvents returns the fixed catalog of trigger event names.
func KnownTriggerEvents() []TriggerEvent {
	return []TriggerEvent{
		TriggerGalleryCreated,
		TriggerGalleryDelivered,
		TriggerGalleryReviewSubmitted,
		TriggerGalleryExpiring,
		TriggerBookingCreated,
		TriggerBookingConfirmed,
		TriggerBookingCancelled,
		TriggerClientCreated,
	}
}

// IsValid reports whether the event name belongs to the fixed catalog.
func (e TriggerEvent) IsValid() bool {
	for _, known := range KnownTriggerEvents() {
		if e == known {
			return true
		}
	}

	return false
}

// Workflow is a persisted automation graph owned by the editor UI.
// Only active workflows are matched against incoming trigger events.
type Workflow struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"          validate:"required,min=3"`
	TriggerEvent TriggerEvent `json:"trigger_event" validate:"required"`
	IsActive     bool         `json:"is_active"`
	// Conditions is the legacy free-form filter from the pre-graph action
	// list model. The graph execution path never reads it.
	Conditions map[string]any  `json:"conditions,omitempty"`
	Nodes      []*WorkflowNode `json:"nodes,omitempty"`
	Edges      []*WorkflowEdge `json:"edges,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}
