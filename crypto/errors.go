package crypto

import "errors"

// Error kinds surfaced by this package. Validation failures wrap one of these
// sentinels with additional context; use errors.Is to classify.
var (
	// ErrInvalidKeyData indicates malformed or out-of-range key material:
	// wrong length, scalar out of range, point not on curve, or a secret half
	// that does not match the supplied public half.
	ErrInvalidKeyData = errors.New("invalid key data")

	// ErrUnsupported indicates an operation which is structurally impossible
	// for the key it was requested on, such as signing with a public-only key
	// or requesting a foreign signature type.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrMissingSecretKey indicates a key exchange attempted with a
	// public-only key pair.
	ErrMissingSecretKey = errors.New("missing secret key")

	// ErrInvalidSignature indicates a signature which did not verify. Note
	// that VerifySignature reports verification failure as a boolean result,
	// not as this error; this sentinel exists for callers which need an error
	// value to propagate.
	ErrInvalidSignature = errors.New("invalid signature")
)
