package jsend

// Status is the JSend status field.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusError   Status = "error"
)

// Envelope is the response wrapper used by the backend and by the portal.
type Envelope[T any] struct {
	Status  Status `json:"status"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK reports whether the envelope carries a success status.
func (e Envelope[T]) OK() bool {
	return e.Status == StatusSuccess
}

// Success wraps data in a success envelope.
func Success[T any](data T) Envelope[T] {
	return Envelope[T]{Status: StatusSuccess, Data: data}
}

// Fail wraps client-caused failure details.
func Fail(message, code string, data map[string]any) Envelope[map[string]any] {
	return Envelope[map[string]any]{Status: StatusFail, Data: data, Message: message, Code: code}
}

// Error wraps a server-side error.
func Error(message, code string) Envelope[map[string]any] {
	return Envelope[map[string]any]{Status: StatusError, Message: message, Code: code}
}
