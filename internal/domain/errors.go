package domain

import "errors"

// Sentinel errors for flow-level error discrimination.
// Services wrap these so the view layer can branch with errors.Is without
// inspecting adapter internals.
var (
	// ErrValidation marks bad local input; no side effect was attempted.
	ErrValidation = errors.New("validation failed")

	// Phone normalization failures, from most to least specific.
	ErrInvalidCountry     = errors.New("unknown country")
	ErrInvalidPhoneLength = errors.New("invalid phone length")
	ErrInvalidPhoneFormat = errors.New("invalid phone format")

	// ErrChallengeUnavailable means the bot-detection widget could not be
	// built or mounted; the user should refresh and retry.
	ErrChallengeUnavailable = errors.New("challenge unavailable")

	// ErrProvider carries an identity-provider rejection; the provider's
	// message is passed through in the wrapping error.
	ErrProvider = errors.New("identity provider error")

	// ErrInvalidCode marks a wrong or expired one-time code.
	ErrInvalidCode = errors.New("invalid code")

	// ErrDirectory marks a failed account-directory call.
	ErrDirectory = errors.New("directory error")

	// ErrRaceDetected means another client claimed the phone number between
	// our existence check and the create call.
	ErrRaceDetected = errors.New("phone number claimed concurrently")

	// ErrStaleSession marks a code confirmation attempted without a pending
	// verification handle.
	ErrStaleSession = errors.New("stale verification session")

	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)
