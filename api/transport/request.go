package transport

// CreateEventRequest is the ingestion payload.
type CreateEventRequest struct {
	Type         string `json:"type"`
	ActorID      int64  `json:"actor_id"`
	TargetUserID int64  `json:"target_user_id"`
	ContentID    *int64 `json:"content_id,omitempty"`
}

// LoginRequest carries dashboard credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
