package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Parsing Pipeline Errors
	ErrParseFailed      = errors.New("no parser produced a signal")
	ErrDuplicateSignal  = errors.New("duplicate signal within the dedup window")
	ErrValidationFailed = errors.New("signal failed validation")
	ErrNotASignal       = errors.New("text is not a trading signal")

	// Price Feed / Upstream Errors
	ErrFeedUnavailable      = errors.New("price feed is unavailable")
	ErrPriceUnavailable     = errors.New("price not available for symbol")
	ErrConnectionFailed     = errors.New("failed to connect to upstream service")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("upstream authentication failed")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
