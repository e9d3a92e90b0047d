package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1004
	ErrCodeMissingRequired = 1009
	ErrCodeInvalidEncoding = 1010
	ErrCodePayloadTooLarge = 1011

	// Domain state (2xxx)
	ErrCodeNoteNotFound = 2001

	// Limits (3xxx)
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

// Error kinds reported in the "kind" field of error responses.
const (
	kindValidation      = "validation_error"
	kindPayloadTooLarge = "payload_too_large"
	kindNotFound        = "not_found"
	kindRateLimited     = "rate_limited"
	kindStore           = "store_error"
	kindInternal        = "internal"
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeNoteNotFound
	case 413:
		return ErrCodeRequestTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
