package reliability

import "time"

// RecognitionClass describes how the coordinator should react to a
// recognition error reported by the platform capability.
type RecognitionClass int

const (
	// RecognitionTransient errors (no-speech, aborted) trigger a silent restart.
	RecognitionTransient RecognitionClass = iota
	// RecognitionFatal errors (permission denied, no capture) end the session
	// until the user intervenes; never auto-retried.
	RecognitionFatal
	// RecognitionRetryOnce covers unclassified errors: one bounded retry with
	// backoff before surfacing.
	RecognitionRetryOnce
)

// ClassifyRecognitionError maps the fixed platform error vocabulary onto a
// restart class.
func ClassifyRecognitionError(kind string) RecognitionClass {
	switch kind {
	case "no-speech", "aborted":
		return RecognitionTransient
	case "not-allowed", "audio-capture":
		return RecognitionFatal
	default:
		return RecognitionRetryOnce
	}
}

// IsFatalCaptureError reports whether a capture error kind requires user
// action before the microphone can be reacquired.
func IsFatalCaptureError(kind string) bool {
	switch kind {
	case "permission-denied", "no-device":
		return true
	default:
		return false
	}
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
