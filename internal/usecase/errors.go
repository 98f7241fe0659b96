package usecase

import "errors"

// ClientError reports a request the caller must fix before retrying.
type ClientError struct {
	Reason string
}

func (e *ClientError) Error() string {
	return e.Reason
}

// ServerError reports any failure past input validation. Message is the text
// returned to callers; Err keeps the annotated cause for logging.
type ServerError struct {
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// ErrNoImage is returned when a request carries no image payload.
var ErrNoImage = &ClientError{Reason: "No image uploaded"}

// ErrHistoryDisabled is returned by history lookups when no repository is configured.
var ErrHistoryDisabled = errors.New("prediction history is disabled")

// AsServerError maps any error that is not already a ServerError to one,
// using the error text as the message.
func AsServerError(err error) *ServerError {
	if err == nil {
		return nil
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr
	}
	return &ServerError{Message: err.Error(), Err: err}
}

// Classify splits err into exactly one of the two variants.
func Classify(err error) (*ClientError, *ServerError) {
	if err == nil {
		return nil, nil
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr, nil
	}
	return nil, AsServerError(err)
}
