package provisioning

import "errors"

// Sentinel errors for the provisioning package.
var (
	// ErrAlreadyRunning is returned when Start is called while a session
	// is already active.
	ErrAlreadyRunning = errors.New("provisioning session already running")

	// ErrAttemptsExhausted marks a session that timed out on every
	// permitted attempt.
	ErrAttemptsExhausted = errors.New("provisioning attempts exhausted")
)
