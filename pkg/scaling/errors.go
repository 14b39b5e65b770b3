package scaling

import "errors"

// Error classes shared by the controller. Call sites wrap them with %w and
// classify with errors.Is.
var (
	// ErrInvalidConfiguration is fatal and only raised at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrConnectivity covers probe and backlog-fetch failures, including timeouts.
	ErrConnectivity = errors.New("connectivity error")
	// ErrAPI is returned when the orchestrator rejects a scale request.
	ErrAPI = errors.New("orchestrator api error")
	// ErrInvalidObservation marks a negative or otherwise corrupt backlog reading.
	ErrInvalidObservation = errors.New("invalid observation")
)
