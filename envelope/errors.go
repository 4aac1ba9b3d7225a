package envelope

import "fmt"

// EncodeError reports an argument value that cannot be written as XML.
type EncodeError struct {
	Path   string
	Reason string
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("envelope: %s", e.Reason)
	}
	return fmt.Sprintf("envelope: %s at %s", e.Reason, e.Path)
}

// SyntaxError reports a malformed response document.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err == nil {
		return "envelope: malformed response"
	}
	return "envelope: malformed response: " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
