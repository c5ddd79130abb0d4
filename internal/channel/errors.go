package channel

import "errors"

type FailureKind int

const (
	// FailureTransient: network errors, 5xx, provider-signaled rate
	// limits. Worth retrying with backoff.
	FailureTransient FailureKind = iota
	// FailurePermanent: invalid or blocked recipient, auth errors.
	// Retrying cannot succeed.
	FailurePermanent
)

type DeliveryError struct {
	Kind FailureKind
	Err  error
}

func (e *DeliveryError) Error() string { return e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

func Transient(err error) error {
	return &DeliveryError{Kind: FailureTransient, Err: err}
}

func Permanent(err error) error {
	return &DeliveryError{Kind: FailurePermanent, Err: err}
}

// IsPermanent reports whether err is a classified permanent delivery
// failure. Unclassified errors count as transient so that an unknown
// condition is retried rather than silently dropped.
func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Kind == FailurePermanent
}
