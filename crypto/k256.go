package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"
)

// Byte lengths for the K-256 / secp256k1 curve. There is no ASN.1 or other
// enclosing structure around any of these encodings.
const (
	// K256SecretKeyLength is the length of a secret scalar, big-endian.
	K256SecretKeyLength = 32
	// K256PublicKeyLength is the length of a SEC1 compressed point encoding.
	K256PublicKeyLength = 33
	// K256KeypairLength is the length of combined keypair bytes: the secret
	// scalar followed by the compressed public point.
	K256KeypairLength = K256SecretKeyLength + K256PublicKeyLength
	// ES256KSignatureLength is the length of an ES256K signature: r and s as
	// 32-byte big-endian integers, concatenated.
	ES256KSignatureLength = 64
	// K256SharedSecretLength is the length of an ECDH shared secret: the raw
	// x-coordinate of the computed point.
	K256SharedSecretLength = 32
)

// JWK constants for K-256 keys.
const (
	jwkKeyTypeEC  = "EC"
	JWKCurveK256  = "secp256k1"
	k256CoordSize = 32
)

// K256KeyPair is a K-256 (secp256k1) public key or keypair, implementing
// ECDSA (ES256K) signing and ECDH key exchange.
//
// The public half is validated at construction on every path: points not on
// the curve, and the identity point specifically, are rejected when decoding.
// When the secret half is present it is held in the backing library's scalar
// storage and can be released deterministically with Destroy.
type K256KeyPair struct {
	secret *secp256k1.PrivateKey // nil for public-only key pairs
	public *secp256k1.PublicKey
}

var _ KeyPair = (*K256KeyPair)(nil)
var _ SecretExporter = (*K256KeyPair)(nil)
var _ KeypairExporter = (*K256KeyPair)(nil)
var _ Signer = (*K256KeyPair)(nil)
var _ Verifier = (*K256KeyPair)(nil)
var _ KeyExchanger = (*K256KeyPair)(nil)
var _ JWKExporter = (*K256KeyPair)(nil)

// GenerateKeyPairK256 creates a new K-256 key pair from the given random
// source, or from crypto/rand when rng is nil.
//
// Generation uses rejection sampling: fixed-length draws are taken from the
// source until one forms a nonzero scalar below the curve order, which keeps
// the distribution over valid secrets uniform.
func GenerateKeyPairK256(rng io.Reader) (*K256KeyPair, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var priv *secp256k1.PrivateKey
	err := WithSecret(K256SecretKeyLength, func(buf []byte) error {
		var s secp256k1.ModNScalar
		defer s.Zero()
		for {
			if _, err := io.ReadFull(rng, buf); err != nil {
				return fmt.Errorf("K-256/secp256k1 key generation failed: %w", err)
			}
			if overflow := s.SetByteSlice(buf); overflow || s.IsZero() {
				continue
			}
			priv = secp256k1.NewPrivateKey(&s)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &K256KeyPair{secret: priv, public: priv.PubKey()}, nil
}

// ParseSecretBytesK256 loads a K256KeyPair from raw secret scalar bytes, as
// exported via WithSecretBytes. The public half is derived from the secret.
func ParseSecretBytesK256(data []byte) (*K256KeyPair, error) {
	if len(data) != K256SecretKeyLength {
		return nil, fmt.Errorf("%w: K-256 secret key must be %d bytes, got %d",
			ErrInvalidKeyData, K256SecretKeyLength, len(data))
	}
	var s secp256k1.ModNScalar
	defer s.Zero()
	if overflow := s.SetByteSlice(data); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: K-256 secret scalar out of range", ErrInvalidKeyData)
	}
	priv := secp256k1.NewPrivateKey(&s)
	return &K256KeyPair{secret: priv, public: priv.PubKey()}, nil
}

// ParsePublicBytesK256 loads a public-only K256KeyPair from SEC1 compressed
// point bytes, as exported by PublicBytes.
func ParsePublicBytesK256(data []byte) (*K256KeyPair, error) {
	if len(data) != K256PublicKeyLength {
		return nil, fmt.Errorf("%w: K-256 compressed public key must be %d bytes, got %d",
			ErrInvalidKeyData, K256PublicKeyLength, len(data))
	}
	if data[0] != 0x02 && data[0] != 0x03 {
		return nil, fmt.Errorf("%w: K-256 public key is not in compressed form", ErrInvalidKeyData)
	}
	// ParsePubKey enforces the curve equation and cannot yield the identity
	// point, which has no compressed encoding.
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid K-256/secp256k1 public key: %v", ErrInvalidKeyData, err)
	}
	return &K256KeyPair{public: pub}, nil
}

// ParsePublicUncompressedBytesK256 loads a public-only K256KeyPair from SEC1
// uncompressed point bytes, as exported by UncompressedPublicBytes.
func ParsePublicUncompressedBytesK256(data []byte) (*K256KeyPair, error) {
	if len(data) != 65 || data[0] != 0x04 {
		return nil, fmt.Errorf("%w: K-256 public key is not in uncompressed form", ErrInvalidKeyData)
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid K-256/secp256k1 public key: %v", ErrInvalidKeyData, err)
	}
	return &K256KeyPair{public: pub}, nil
}

// ParseKeypairBytesK256 loads a K256KeyPair from combined keypair bytes, as
// exported via WithKeypairBytes. The public half supplied is cross-checked in
// constant time against the one derived from the secret half.
func ParseKeypairBytesK256(data []byte) (*K256KeyPair, error) {
	if len(data) != K256KeypairLength {
		return nil, fmt.Errorf("%w: K-256 keypair must be %d bytes, got %d",
			ErrInvalidKeyData, K256KeypairLength, len(data))
	}
	kp, err := ParseSecretBytesK256(data[:K256SecretKeyLength])
	if err != nil {
		return nil, err
	}
	if !ConstantTimeEqual(kp.PublicBytes(), data[K256SecretKeyLength:]) {
		kp.Destroy()
		return nil, fmt.Errorf("%w: K-256 public key does not match secret key", ErrInvalidKeyData)
	}
	return kp, nil
}

// Algorithm reports AlgK256.
func (k *K256KeyPair) Algorithm() Algorithm {
	return AlgK256
}

// HasSecret reports whether the secret half is present.
func (k *K256KeyPair) HasSecret() bool {
	return k.secret != nil
}

// PublicBytes serializes the public half in SEC1 compressed form: a 0x02 or
// 0x03 prefix byte followed by the 32-byte x-coordinate.
func (k *K256KeyPair) PublicBytes() []byte {
	return k.public.SerializeCompressed()
}

// UncompressedPublicBytes serializes the public half in SEC1 uncompressed
// form: a 0x04 prefix byte followed by the x and y coordinates.
func (k *K256KeyPair) UncompressedPublicBytes() []byte {
	return k.public.SerializeUncompressed()
}

// Equal reports whether other is a K-256 key pair with the same public half,
// compared in constant time.
func (k *K256KeyPair) Equal(other KeyPair) bool {
	otherK256, ok := other.(*K256KeyPair)
	if !ok {
		return false
	}
	return ConstantTimeEqual(k.PublicBytes(), otherK256.PublicBytes())
}

// WithSecretBytes invokes f with the 32-byte secret scalar, or with nil when
// no secret half is present. The bytes are zeroized when f returns.
func (k *K256KeyPair) WithSecretBytes(f func(sk []byte) error) error {
	if k.secret == nil {
		return f(nil)
	}
	return WithSecret(K256SecretKeyLength, func(buf []byte) error {
		k.secret.Key.PutBytesUnchecked(buf)
		return f(buf)
	})
}

// WithKeypairBytes invokes f with the 65-byte concatenation of secret scalar
// and compressed public point, or with nil when no secret half is present.
// The bytes are zeroized when f returns.
func (k *K256KeyPair) WithKeypairBytes(f func(kp []byte) error) error {
	if k.secret == nil {
		return f(nil)
	}
	return WithSecret(K256KeypairLength, func(buf []byte) error {
		k.secret.Key.PutBytesUnchecked(buf[:K256SecretKeyLength])
		copy(buf[K256SecretKeyLength:], k.public.SerializeCompressed())
		return f(buf)
	})
}

// SignMessage hashes msg with SHA-256 and signs the digest, returning a
// 64-byte "r || s" signature with no DER wrapping.
//
// Signatures are deterministic (RFC 6979 nonces) and always low-S, so signing
// the same message twice yields identical bytes.
func (k *K256KeyPair) SignMessage(msg []byte, sigType SignatureType) ([]byte, error) {
	switch sigType {
	case SigTypeDefault, SigTypeES256K:
	default:
		return nil, fmt.Errorf("%w: signature type not supported for K-256 keys", ErrUnsupported)
	}
	if k.secret == nil {
		return nil, fmt.Errorf("%w: undefined secret key", ErrUnsupported)
	}
	digest := sha256.Sum256(msg)
	// Compact signatures are laid out [recovery byte, r, s]; the recovery
	// byte is dropped to obtain the raw r || s form.
	compact := secpecdsa.SignCompact(k.secret, digest[:], true)
	sig := make([]byte, ES256KSignatureLength)
	copy(sig, compact[1:])
	ZeroizeBytes(compact)
	return sig, nil
}

// VerifySignature hashes msg with SHA-256 and reports whether sig is a valid
// 64-byte "r || s" signature over the digest. Wrong-length or non-canonical
// signature bytes yield (false, nil) rather than an error, so a loop over
// candidate signatures is never aborted by a malformed entry.
func (k *K256KeyPair) VerifySignature(msg, sig []byte, sigType SignatureType) (bool, error) {
	switch sigType {
	case SigTypeDefault, SigTypeES256K:
	default:
		return false, fmt.Errorf("%w: signature type not supported for K-256 keys", ErrUnsupported)
	}
	if len(sig) != ES256KSignatureLength {
		return false, nil
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false, nil
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false, nil
	}
	if r.IsZero() || s.IsZero() {
		return false, nil
	}
	digest := sha256.Sum256(msg)
	return secpecdsa.NewSignature(&r, &s).Verify(digest[:], k.public), nil
}

// KeyExchange combines this pair's secret scalar with remote's public point
// and returns the raw 32-byte x-coordinate of the result. No hashing or key
// derivation is applied; that is the caller's concern.
func (k *K256KeyPair) KeyExchange(remote KeyPair) ([]byte, error) {
	if k.secret == nil {
		return nil, ErrMissingSecretKey
	}
	otherK256, ok := remote.(*K256KeyPair)
	if !ok {
		return nil, fmt.Errorf("%w: key exchange between %s and %s keys",
			ErrUnsupported, k.Algorithm(), remote.Algorithm())
	}
	return secp256k1.GenerateSharedSecret(k.secret, otherK256.public), nil
}

// JWK encodes the key pair as a JSON Web Key with crv "secp256k1". The "d"
// field is included only when includeSecret is true and a secret half is
// present.
func (k *K256KeyPair) JWK(includeSecret bool) (*JWK, error) {
	raw := k.public.SerializeUncompressed()
	// The identity point has no affine coordinates to encode. Decoding paths
	// already reject it, but keep the guard in case a backing-library change
	// lets one through.
	if len(raw) != 65 {
		return nil, fmt.Errorf("%w: cannot encode identity point as JWK", ErrUnsupported)
	}
	jwk := &JWK{
		KeyType: jwkKeyTypeEC,
		Curve:   JWKCurveK256,
		X:       jwkEncodeCoord(raw[1:33]),
		Y:       jwkEncodeCoord(raw[33:65]),
	}
	if includeSecret && k.secret != nil {
		err := k.WithSecretBytes(func(sk []byte) error {
			jwk.D = jwkEncodeCoord(sk)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return jwk, nil
}

// parseJWKK256 reconstructs a K256KeyPair from decoded JWK fields.
func parseJWKK256(jwk *JWK) (*K256KeyPair, error) {
	xbuf, err := jwkDecodeCoord(jwk.X, k256CoordSize)
	if err != nil {
		return nil, fmt.Errorf("invalid K-256 JWK \"x\": %w", err)
	}
	ybuf, err := jwkDecodeCoord(jwk.Y, k256CoordSize)
	if err != nil {
		return nil, fmt.Errorf("invalid K-256 JWK \"y\": %w", err)
	}
	raw := make([]byte, 0, 65)
	raw = append(raw, 0x04)
	raw = append(raw, xbuf...)
	raw = append(raw, ybuf...)
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid K-256 JWK coordinates: %v", ErrInvalidKeyData, err)
	}
	if jwk.D == "" {
		return &K256KeyPair{public: pub}, nil
	}
	var kp *K256KeyPair
	err = WithSecret(K256SecretKeyLength, func(buf []byte) error {
		if err := jwkDecodeCoordInto(jwk.D, buf); err != nil {
			return fmt.Errorf("invalid K-256 JWK \"d\": %w", err)
		}
		var perr error
		kp, perr = ParseSecretBytesK256(buf)
		return perr
	})
	if err != nil {
		return nil, err
	}
	if !ConstantTimeEqual(kp.PublicBytes(), pub.SerializeCompressed()) {
		kp.Destroy()
		return nil, fmt.Errorf("%w: K-256 JWK \"d\" does not match \"x\"/\"y\"", ErrInvalidKeyData)
	}
	return kp, nil
}

// Multibase returns the multibase string encoding of the public key,
// including a multicodec indicator and compressed point serialization.
func (k *K256KeyPair) Multibase() string {
	kbytes := k.PublicBytes()
	// multicodec secp256k1-pub, code 0xE7, varint bytes: [0xE7, 0x01]
	kbytes = append([]byte{0xE7, 0x01}, kbytes...)
	return "z" + base58.Encode(kbytes)
}

// SecretMultibase returns the multibase string encoding of the secret key,
// including a multicodec indicator, or ErrMissingSecretKey when the secret
// half is absent.
func (k *K256KeyPair) SecretMultibase() (string, error) {
	if k.secret == nil {
		return "", ErrMissingSecretKey
	}
	var out string
	err := k.WithSecretBytes(func(sk []byte) error {
		// multicodec secp256k1-priv, code 0x1301, varint-encoded bytes: [0x81, 0x26]
		kbytes := append([]byte{0x81, 0x26}, sk...)
		out = "z" + base58.Encode(kbytes)
		ZeroizeBytes(kbytes)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// DIDKey returns the did:key string encoding of the public key: the
// compressed point with multicodec prefix, base58btc-encoded, with "z" and
// "did:key:" prefixes.
func (k *K256KeyPair) DIDKey() string {
	return "did:key:" + k.Multibase()
}

// Destroy zeroizes the secret half, if any, leaving a public-only key pair.
// Safe to call more than once.
func (k *K256KeyPair) Destroy() {
	if k.secret != nil {
		k.secret.Zero()
		k.secret = nil
	}
}
