package crypto

import (
	"fmt"
	"io"
	"strings"

	"github.com/mr-tron/base58"
)

// Algorithm identifies which curve or scheme a key pair belongs to. It is
// used for dispatch and to refuse operations between mismatched key types; it
// carries no behavior of its own.
type Algorithm uint8

const (
	// AlgK256 is the K-256 / secp256k1 / ES256K elliptic curve.
	AlgK256 Algorithm = 1
	// AlgP256 is the NIST P-256 / secp256r1 / ES256 elliptic curve.
	AlgP256 Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case AlgK256:
		return "k256"
	case AlgP256:
		return "p256"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// SignatureType selects a signature scheme when a key supports more than its
// native one. The zero value requests the key's native scheme.
type SignatureType uint8

const (
	// SigTypeDefault requests the native signature type of the algorithm.
	SigTypeDefault SignatureType = iota
	// SigTypeES256K is ECDSA over secp256k1 with SHA-256.
	SigTypeES256K
	// SigTypeES256 is ECDSA over P-256 with SHA-256.
	SigTypeES256
)

// KeyPair is the capability common to every algorithm backend: a validated
// public half, which is always present, plus the algorithm tag. The secret
// half is optional; its capabilities are the separate interfaces below.
//
// Key pairs are immutable after construction (Destroy excepted) and safe for
// concurrent read use.
type KeyPair interface {
	// Algorithm reports which curve/scheme this key pair belongs to.
	Algorithm() Algorithm
	// HasSecret reports whether the secret half is present.
	HasSecret() bool
	// PublicBytes serializes the public half in compressed form.
	PublicBytes() []byte
	// UncompressedPublicBytes serializes the public half in uncompressed form.
	UncompressedPublicBytes() []byte
	// Equal reports whether other has the same algorithm and public half,
	// compared in constant time. Note that the naive == operator does not
	// work for key equality checks.
	Equal(other KeyPair) bool
}

// SecretExporter is implemented by key pairs whose secret half can be
// exported as raw bytes.
type SecretExporter interface {
	// WithSecretBytes invokes f with the fixed-length secret scalar bytes,
	// or with nil when no secret half is present (which is not an error).
	// The bytes are zeroized when f returns and must not be retained.
	WithSecretBytes(f func(sk []byte) error) error
}

// KeypairExporter is implemented by key pairs which can serialize both halves
// as a single fixed-length concatenation of secret bytes then compressed
// public bytes.
type KeypairExporter interface {
	// WithKeypairBytes invokes f with the combined keypair bytes, or with nil
	// when no secret half is present. The bytes are zeroized when f returns
	// and must not be retained.
	WithKeypairBytes(f func(kp []byte) error) error
}

// Signer is implemented by key pairs which can produce signatures.
type Signer interface {
	// SignMessage signs msg, hashing it first as the signature type requires,
	// and returns fixed-length signature bytes. Fails with ErrUnsupported
	// when no secret half is present or when sigType is not the algorithm's
	// native type.
	SignMessage(msg []byte, sigType SignatureType) ([]byte, error)
}

// Verifier is implemented by key pairs which can verify signatures.
type Verifier interface {
	// VerifySignature reports whether sig is a valid signature over msg.
	// Malformed or wrong-length signature bytes yield (false, nil), never an
	// error; the only error condition is an unrecognized sigType.
	VerifySignature(msg, sig []byte, sigType SignatureType) (bool, error)
}

// KeyExchanger is implemented by key pairs supporting Diffie-Hellman key
// exchange.
type KeyExchanger interface {
	// KeyExchange combines this pair's secret half with remote's public half
	// and returns the raw fixed-length shared field element. No hashing or
	// key derivation is applied; that is the caller's concern. Fails with
	// ErrMissingSecretKey when this pair has no secret half, and with
	// ErrUnsupported when remote belongs to a different algorithm.
	KeyExchange(remote KeyPair) ([]byte, error)
}

// JWKExporter is implemented by key pairs which can encode themselves as a
// JSON Web Key.
type JWKExporter interface {
	// JWK encodes the key pair's canonical JWK field set. When includeSecret
	// is true and a secret half is present, the "d" field is included;
	// otherwise only public fields are written.
	JWK(includeSecret bool) (*JWK, error)
}

// GenerateKeyPair creates a new key pair of the given algorithm from the
// provided random source. A nil rng uses crypto/rand.
func GenerateKeyPair(alg Algorithm, rng io.Reader) (KeyPair, error) {
	switch alg {
	case AlgK256:
		return GenerateKeyPairK256(rng)
	case AlgP256:
		return GenerateKeyPairP256(rng)
	default:
		return nil, fmt.Errorf("%w: unknown key algorithm", ErrUnsupported)
	}
}

// ParseSecretBytes loads a key pair from raw secret scalar bytes; the public
// half is derived. Calling code needs to know the algorithm ahead of time,
// and must remove any string encoding (hex, base64, etc) before calling.
func ParseSecretBytes(alg Algorithm, data []byte) (KeyPair, error) {
	switch alg {
	case AlgK256:
		return ParseSecretBytesK256(data)
	case AlgP256:
		return ParseSecretBytesP256(data)
	default:
		return nil, fmt.Errorf("%w: unknown key algorithm", ErrUnsupported)
	}
}

// ParsePublicBytes loads a public-only key pair from compressed point bytes.
func ParsePublicBytes(alg Algorithm, data []byte) (KeyPair, error) {
	switch alg {
	case AlgK256:
		return ParsePublicBytesK256(data)
	case AlgP256:
		return ParsePublicBytesP256(data)
	default:
		return nil, fmt.Errorf("%w: unknown key algorithm", ErrUnsupported)
	}
}

// ParsePublicUncompressedBytes loads a public-only key pair from uncompressed
// point bytes.
func ParsePublicUncompressedBytes(alg Algorithm, data []byte) (KeyPair, error) {
	switch alg {
	case AlgK256:
		return ParsePublicUncompressedBytesK256(data)
	case AlgP256:
		return ParsePublicUncompressedBytesP256(data)
	default:
		return nil, fmt.Errorf("%w: unknown key algorithm", ErrUnsupported)
	}
}

// ParseKeypairBytes loads a key pair from combined keypair bytes, as exported
// by WithKeypairBytes. The public half supplied is cross-checked against the
// one derived from the secret half.
func ParseKeypairBytes(alg Algorithm, data []byte) (KeyPair, error) {
	switch alg {
	case AlgK256:
		return ParseKeypairBytesK256(data)
	case AlgP256:
		return ParseKeypairBytesP256(data)
	default:
		return nil, fmt.Errorf("%w: unknown key algorithm", ErrUnsupported)
	}
}

// ParsePublicMultibase parses a public key in multibase encoding, including
// the multicodec prefix, as produced by the Multibase method. Only base58btc
// ("z" prefix) is handled.
func ParsePublicMultibase(encoded string) (KeyPair, error) {
	if len(encoded) < 2 || encoded[0] != 'z' {
		return nil, fmt.Errorf("%w: not a base58btc multibase string", ErrInvalidKeyData)
	}
	raw, err := base58.Decode(encoded[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base58btc encoding: %v", ErrInvalidKeyData, err)
	}
	switch {
	case len(raw) == 2+K256PublicKeyLength && raw[0] == 0xE7 && raw[1] == 0x01:
		return ParsePublicBytesK256(raw[2:])
	case len(raw) == 2+P256PublicKeyLength && raw[0] == 0x80 && raw[1] == 0x24:
		return ParsePublicBytesP256(raw[2:])
	default:
		return nil, fmt.Errorf("%w: unknown multicodec prefix in public key", ErrUnsupported)
	}
}

// ParsePublicDIDKey parses a public key in did:key string encoding, as
// produced by the DIDKey method.
func ParsePublicDIDKey(didKey string) (KeyPair, error) {
	if !strings.HasPrefix(didKey, "did:key:") {
		return nil, fmt.Errorf("%w: string is not a did:key", ErrInvalidKeyData)
	}
	return ParsePublicMultibase(strings.TrimPrefix(didKey, "did:key:"))
}
