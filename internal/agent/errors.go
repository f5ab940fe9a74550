package agent

import "errors"

// Sentinel errors checked with errors.Is().
var (
	// ErrGenerationUnavailable indicates the generative provider could not
	// be reached. The loop ends the turn with an apology instead of
	// crashing the session.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrInvalidStrategyRequest indicates the model requested a strategy
	// with an unknown name or missing/invalid parameters. Recovered locally
	// as empty evidence.
	ErrInvalidStrategyRequest = errors.New("invalid strategy request")
)
