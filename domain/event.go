package domain

import "time"

// Well-known interaction types. Anything else is still accepted and falls
// through to the generic notification message.
const (
	EventLike    = "like"
	EventComment = "comment"
	EventShare   = "share"
	EventFollow  = "follow"
)

// Event is a raw social interaction awaiting notification generation.
// Processed transitions false -> true exactly once, and only the processor
// flips it. Events are never deleted.
type Event struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	ActorID      int64     `json:"actor_id"`
	TargetUserID int64     `json:"target_user_id"`
	ContentID    *int64    `json:"content_id,omitempty"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the fields ingestion requires before an event is stored.
func (e *Event) Validate() error {
	if e == nil || e.Type == "" {
		return ErrInvalidPayload
	}
	if e.ActorID <= 0 || e.TargetUserID <= 0 {
		return ErrInvalidPayload
	}
	return nil
}
