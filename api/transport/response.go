package transport

// Envelope is the standard API response wrapper for both success and error
// payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}) Envelope {
	return Envelope{Status: "success", Data: data}
}

// NewError returns an error envelope.
func NewError(code string, err interface{}) Envelope {
	return Envelope{Status: "error", Code: code, Error: err}
}
