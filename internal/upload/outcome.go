package upload

import "fmt"

// Outcome is the terminal result of one submission.
// It is one of Success, HTTPError or TransportError.
type Outcome interface {
	isOutcome()
}

// Success is a 2xx response with a decoded JSON body.
type Success struct {
	Message          string
	Script           string
	OriginalFilename string
	UploadType       string
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

// TransportError means no usable response was obtained.
type TransportError struct {
	Err error
}

func (Success) isOutcome()        {}
func (HTTPError) isOutcome()      {}
func (TransportError) isOutcome() {}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%d - %s", e.StatusCode, e.Message)
}

func (e TransportError) Error() string {
	if e.Err == nil {
		return "unknown transport error"
	}
	return e.Err.Error()
}

func (e TransportError) Unwrap() error { return e.Err }

// Err converts an outcome to an error, nil for Success.
func Err(o Outcome) error {
	switch o := o.(type) {
	case HTTPError:
		return o
	case TransportError:
		return o
	case nil:
		return TransportError{}
	default:
		return nil
	}
}
