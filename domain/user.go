package domain

// User is an actor account. The processing pipeline only consumes ID and
// Username; Password is a bcrypt hash checked at login and never serialized.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}
