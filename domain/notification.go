package domain

import (
	"fmt"
	"time"
)

// Notification is the user-facing artifact derived from exactly one event.
// Delivered and DeliveryTimeMs are set together, once, right after creation.
type Notification struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	ActorID        int64     `json:"actor_id"`
	TargetUserID   int64     `json:"target_user_id"`
	ContentID      *int64    `json:"content_id,omitempty"`
	Message        string    `json:"message"`
	Delivered      bool      `json:"delivered"`
	DeliveryTimeMs *int      `json:"delivery_time_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EnrichedNotification carries the resolved actor name alongside the record,
// both on the real-time channel and in feed query responses.
type EnrichedNotification struct {
	Notification
	ActorUsername string `json:"actor_username"`
}

// UnknownActor is the placeholder used when an actor no longer resolves.
const UnknownActor = "Unknown User"

// BuildMessage maps an interaction type and actor name to the notification
// text. Pure and deterministic, no I/O.
func BuildMessage(eventType, actor string) string {
	switch eventType {
	case EventLike:
		return fmt.Sprintf("%s liked your post", actor)
	case EventComment:
		return fmt.Sprintf("%s commented on your post", actor)
	case EventShare:
		return fmt.Sprintf("%s shared your post", actor)
	case EventFollow:
		return fmt.Sprintf("%s started following you", actor)
	default:
		return fmt.Sprintf("%s interacted with your content", actor)
	}
}
