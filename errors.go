package auditagent

import "errors"

// FailureKind classifies every way a device audit can fail. Each kind maps
// to exactly one status literal; conversion to a failure row happens at the
// device task boundary so no error ever crosses into the worker loop.
type FailureKind int

const (
	// FailureOther is the catch-all for anything the declared kinds do not
	// cover; its row carries the underlying error description.
	FailureOther FailureKind = iota
	FailureAuthentication
	FailureConnectTimeout
	FailureUnsupportedOS
	FailureVersionParse
)

// String returns a short tag for log fields.
func (k FailureKind) String() string {
	switch k {
	case FailureAuthentication:
		return "authentication_failed"
	case FailureConnectTimeout:
		return "connection_timeout"
	case FailureUnsupportedOS:
		return "unsupported_os"
	case FailureVersionParse:
		return "version_parse_failed"
	default:
		return "other"
	}
}

// SessionError attaches a FailureKind to a provider error so the device task
// can pick the right status literal without inspecting error text.
type SessionError struct {
	Kind FailureKind
	Err  error
}

func (e *SessionError) Error() string {
	if e == nil || e.Err == nil {
		return "session error"
	}
	return e.Err.Error()
}

func (e *SessionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailureKindOf extracts the kind from err, defaulting to FailureOther for
// anything a provider did not classify.
func FailureKindOf(err error) FailureKind {
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr.Kind
	}
	return FailureOther
}
