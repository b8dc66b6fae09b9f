package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrNotWhitelisted     ErrCode = "NOT_WHITELISTED"
	ErrOTPInvalid         ErrCode = "OTP_INVALID"
	ErrOTPDelivery        ErrCode = "OTP_DELIVERY_FAILED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Test session ──────────────────────────────────────────────────
	ErrInvalidState      ErrCode = "INVALID_STATE"
	ErrOutOfRange        ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrAlreadyAnswered   ErrCode = "ALREADY_ANSWERED"
	ErrTimeExpired       ErrCode = "TIME_EXPIRED"
	ErrInvalidSubmission ErrCode = "INVALID_SUBMISSION"
	ErrNoData            ErrCode = "NO_TEST_DATA"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInsufficientPool ErrCode = "INSUFFICIENT_QUESTION_POOL"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrNotWhitelisted:
		return "This email is not registered for the test."
	case ErrOTPInvalid:
		return "The code is invalid or has expired."
	case ErrOTPDelivery:
		return "The code could not be delivered. Please try again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrDependencyExists:
		return "The record cannot be removed because other data depends on it."

	// ─── Test session ──────────────────────────────────────────────────
	case ErrInvalidState:
		return "This action is not allowed in the current test state."
	case ErrOutOfRange:
		return "Question number is out of range."
	case ErrAlreadyAnswered:
		return "This question has already been answered."
	case ErrTimeExpired:
		return "Time for this question has expired. Please continue to the next one."
	case ErrInvalidSubmission:
		return "The submission is invalid."
	case ErrNoData:
		return "No test data exists for this candidate."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInsufficientPool:
		return "The question bank does not have enough active questions."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
