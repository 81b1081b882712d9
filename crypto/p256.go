package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
	"math/big"

	"github.com/mr-tron/base58"
)

// Byte lengths for the NIST P-256 / secp256r1 curve.
const (
	// P256SecretKeyLength is the length of a secret scalar, big-endian.
	P256SecretKeyLength = 32
	// P256PublicKeyLength is the length of a SEC1 compressed point encoding.
	P256PublicKeyLength = 33
	// P256KeypairLength is the length of combined keypair bytes.
	P256KeypairLength = P256SecretKeyLength + P256PublicKeyLength
	// ES256SignatureLength is the length of an ES256 signature.
	ES256SignatureLength = 64
)

// JWKCurveP256 is the JWK "crv" value for P-256 keys.
const JWKCurveP256 = "P-256"

const p256CoordSize = 32

// P256KeyPair is a NIST P-256 (secp256r1) public key or keypair, implementing
// ECDSA (ES256) signing and ECDH key exchange atop the standard library curve
// implementation.
//
// ES256 signing uses randomized nonces, so unlike K-256 it does not produce
// byte-identical signatures for repeated messages; signatures are always
// normalized to the low-S form.
type P256KeyPair struct {
	secret     *ecdsa.PrivateKey // nil for public-only key pairs
	secretECDH *ecdh.PrivateKey  // derived alongside secret
	public     ecdsa.PublicKey
}

var _ KeyPair = (*P256KeyPair)(nil)
var _ SecretExporter = (*P256KeyPair)(nil)
var _ KeypairExporter = (*P256KeyPair)(nil)
var _ Signer = (*P256KeyPair)(nil)
var _ Verifier = (*P256KeyPair)(nil)
var _ KeyExchanger = (*P256KeyPair)(nil)
var _ JWKExporter = (*P256KeyPair)(nil)

// GenerateKeyPairP256 creates a new P-256 key pair from the given random
// source, or from crypto/rand when rng is nil.
func GenerateKeyPairP256(rng io.Reader) (*P256KeyPair, error) {
	if rng == nil {
		rng = rand.Reader
	}
	skECDSA, err := ecdsa.GenerateKey(elliptic.P256(), rng)
	if err != nil {
		return nil, fmt.Errorf("P-256/secp256r1 key generation failed: %w", err)
	}
	skECDH, err := skECDSA.ECDH()
	if err != nil {
		return nil, fmt.Errorf("unexpected internal error converting P-256 key from ecdsa to ecdh: %w", err)
	}
	return &P256KeyPair{secret: skECDSA, secretECDH: skECDH, public: skECDSA.PublicKey}, nil
}

// ParseSecretBytesP256 loads a P256KeyPair from raw secret scalar bytes, as
// exported via WithSecretBytes. The public half is derived from the secret.
func ParseSecretBytesP256(data []byte) (*P256KeyPair, error) {
	if len(data) != P256SecretKeyLength {
		return nil, fmt.Errorf("%w: P-256 secret key must be %d bytes, got %d",
			ErrInvalidKeyData, P256SecretKeyLength, len(data))
	}
	// Parse as an ecdh.PrivateKey first, which validates the scalar range,
	// then convert to ecdsa.PrivateKey by round-tripping through PKCS8.
	// Note that the 'data' bytes format is *not* x509 PKCS8.
	skECDH, err := ecdh.P256().NewPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid P-256/secp256r1 private key: %v", ErrInvalidKeyData, err)
	}
	enc, err := x509.MarshalPKCS8PrivateKey(skECDH)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid P-256/secp256r1 private key: %v", ErrInvalidKeyData, err)
	}
	defer ZeroizeBytes(enc)
	sk, err := x509.ParsePKCS8PrivateKey(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid P-256/secp256r1 private key: %v", ErrInvalidKeyData, err)
	}
	skECDSA, ok := sk.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected P-256 PKCS8 key type %T", ErrInvalidKeyData, sk)
	}
	return &P256KeyPair{secret: skECDSA, secretECDH: skECDH, public: skECDSA.PublicKey}, nil
}

// ParsePublicBytesP256 loads a public-only P256KeyPair from SEC1 compressed
// point bytes, as exported by PublicBytes.
func ParsePublicBytesP256(data []byte) (*P256KeyPair, error) {
	if len(data) != P256PublicKeyLength {
		return nil, fmt.Errorf("%w: P-256 compressed public key must be %d bytes, got %d",
			ErrInvalidKeyData, P256PublicKeyLength, len(data))
	}
	curve := elliptic.P256()
	x, y := elliptic.UnmarshalCompressed(curve, data)
	if x == nil {
		return nil, fmt.Errorf("%w: invalid P-256 public key", ErrInvalidKeyData)
	}
	return newPublicP256(curve, x, y)
}

// ParsePublicUncompressedBytesP256 loads a public-only P256KeyPair from SEC1
// uncompressed point bytes, as exported by UncompressedPublicBytes.
func ParsePublicUncompressedBytesP256(data []byte) (*P256KeyPair, error) {
	curve := elliptic.P256()
	x, y := elliptic.Unmarshal(curve, data)
	if x == nil {
		return nil, fmt.Errorf("%w: invalid P-256 public key", ErrInvalidKeyData)
	}
	return newPublicP256(curve, x, y)
}

// ParseKeypairBytesP256 loads a P256KeyPair from combined keypair bytes. The
// public half supplied is cross-checked in constant time against the one
// derived from the secret half.
func ParseKeypairBytesP256(data []byte) (*P256KeyPair, error) {
	if len(data) != P256KeypairLength {
		return nil, fmt.Errorf("%w: P-256 keypair must be %d bytes, got %d",
			ErrInvalidKeyData, P256KeypairLength, len(data))
	}
	kp, err := ParseSecretBytesP256(data[:P256SecretKeyLength])
	if err != nil {
		return nil, err
	}
	if !ConstantTimeEqual(kp.PublicBytes(), data[P256SecretKeyLength:]) {
		kp.Destroy()
		return nil, fmt.Errorf("%w: P-256 public key does not match secret key", ErrInvalidKeyData)
	}
	return kp, nil
}

// newPublicP256 validates decoded coordinates and wraps them as a public-only
// key pair, rejecting off-curve points and the identity point.
func newPublicP256(curve elliptic.Curve, x, y *big.Int) (*P256KeyPair, error) {
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, fmt.Errorf("%w: P-256 public key is the identity point", ErrInvalidKeyData)
	}
	if !curve.Params().IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: P-256 public key is not on the curve", ErrInvalidKeyData)
	}
	return &P256KeyPair{public: ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// Algorithm reports AlgP256.
func (k *P256KeyPair) Algorithm() Algorithm {
	return AlgP256
}

// HasSecret reports whether the secret half is present.
func (k *P256KeyPair) HasSecret() bool {
	return k.secret != nil
}

// PublicBytes serializes the public half in SEC1 compressed form.
func (k *P256KeyPair) PublicBytes() []byte {
	return elliptic.MarshalCompressed(k.public.Curve, k.public.X, k.public.Y)
}

// UncompressedPublicBytes serializes the public half in SEC1 uncompressed form.
func (k *P256KeyPair) UncompressedPublicBytes() []byte {
	return elliptic.Marshal(k.public.Curve, k.public.X, k.public.Y)
}

// Equal reports whether other is a P-256 key pair with the same public half,
// compared in constant time.
func (k *P256KeyPair) Equal(other KeyPair) bool {
	otherP256, ok := other.(*P256KeyPair)
	if !ok {
		return false
	}
	return ConstantTimeEqual(k.PublicBytes(), otherP256.PublicBytes())
}

// WithSecretBytes invokes f with the 32-byte secret scalar, or with nil when
// no secret half is present. The bytes are zeroized when f returns.
func (k *P256KeyPair) WithSecretBytes(f func(sk []byte) error) error {
	if k.secret == nil {
		return f(nil)
	}
	return WithSecret(P256SecretKeyLength, func(buf []byte) error {
		raw := k.secretECDH.Bytes()
		copy(buf, raw)
		ZeroizeBytes(raw)
		return f(buf)
	})
}

// WithKeypairBytes invokes f with the 65-byte concatenation of secret scalar
// and compressed public point, or with nil when no secret half is present.
// The bytes are zeroized when f returns.
func (k *P256KeyPair) WithKeypairBytes(f func(kp []byte) error) error {
	if k.secret == nil {
		return f(nil)
	}
	return WithSecret(P256KeypairLength, func(buf []byte) error {
		raw := k.secretECDH.Bytes()
		copy(buf[:P256SecretKeyLength], raw)
		ZeroizeBytes(raw)
		copy(buf[P256SecretKeyLength:], k.PublicBytes())
		return f(buf)
	})
}

// SignMessage hashes msg with SHA-256 and signs the digest, returning a
// 64-byte "r || s" signature with no DER wrapping. The signature is always
// normalized to the low-S form.
func (k *P256KeyPair) SignMessage(msg []byte, sigType SignatureType) ([]byte, error) {
	switch sigType {
	case SigTypeDefault, SigTypeES256:
	default:
		return nil, fmt.Errorf("%w: signature type not supported for P-256 keys", ErrUnsupported)
	}
	if k.secret == nil {
		return nil, fmt.Errorf("%w: undefined secret key", ErrUnsupported)
	}
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, k.secret, digest[:])
	if err != nil {
		return nil, fmt.Errorf("crypto error signing with P-256/secp256r1 private key: %w", err)
	}
	s = sigSToLowS_P256(s)
	sig := make([]byte, ES256SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// VerifySignature hashes msg with SHA-256 and reports whether sig is a valid
// 64-byte "r || s" signature over the digest. Wrong-length signature bytes
// yield (false, nil) rather than an error.
func (k *P256KeyPair) VerifySignature(msg, sig []byte, sigType SignatureType) (bool, error) {
	switch sigType {
	case SigTypeDefault, SigTypeES256:
	default:
		return false, fmt.Errorf("%w: signature type not supported for P-256 keys", ErrUnsupported)
	}
	if len(sig) != ES256SignatureLength {
		return false, nil
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	digest := sha256.Sum256(msg)
	return ecdsa.Verify(&k.public, digest[:], r, s), nil
}

// KeyExchange combines this pair's secret scalar with remote's public point
// and returns the raw 32-byte x-coordinate of the result. No hashing or key
// derivation is applied; that is the caller's concern.
func (k *P256KeyPair) KeyExchange(remote KeyPair) ([]byte, error) {
	if k.secret == nil {
		return nil, ErrMissingSecretKey
	}
	otherP256, ok := remote.(*P256KeyPair)
	if !ok {
		return nil, fmt.Errorf("%w: key exchange between %s and %s keys",
			ErrUnsupported, k.Algorithm(), remote.Algorithm())
	}
	remoteECDH, err := otherP256.public.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid P-256 public key for exchange: %v", ErrInvalidKeyData, err)
	}
	shared, err := k.secretECDH.ECDH(remoteECDH)
	if err != nil {
		return nil, fmt.Errorf("P-256 key exchange failed: %w", err)
	}
	return shared, nil
}

// JWK encodes the key pair as a JSON Web Key with crv "P-256". The "d" field
// is included only when includeSecret is true and a secret half is present.
func (k *P256KeyPair) JWK(includeSecret bool) (*JWK, error) {
	if k.public.X == nil || (k.public.X.Sign() == 0 && k.public.Y.Sign() == 0) {
		return nil, fmt.Errorf("%w: cannot encode identity point as JWK", ErrUnsupported)
	}
	// Fixed-length coordinates: FillBytes keeps leading zero bytes that
	// big.Int.Bytes would drop.
	xbuf := make([]byte, p256CoordSize)
	ybuf := make([]byte, p256CoordSize)
	k.public.X.FillBytes(xbuf)
	k.public.Y.FillBytes(ybuf)
	jwk := &JWK{
		KeyType: jwkKeyTypeEC,
		Curve:   JWKCurveP256,
		X:       jwkEncodeCoord(xbuf),
		Y:       jwkEncodeCoord(ybuf),
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

// parseJWKP256 reconstructs a P256KeyPair from decoded JWK fields.
func parseJWKP256(jwk *JWK) (*P256KeyPair, error) {
	xbuf, err := jwkDecodeCoord(jwk.X, p256CoordSize)
	if err != nil {
		return nil, fmt.Errorf("invalid P-256 JWK \"x\": %w", err)
	}
	ybuf, err := jwkDecodeCoord(jwk.Y, p256CoordSize)
	if err != nil {
		return nil, fmt.Errorf("invalid P-256 JWK \"y\": %w", err)
	}
	var x, y big.Int
	x.SetBytes(xbuf)
	y.SetBytes(ybuf)
	pub, err := newPublicP256(elliptic.P256(), &x, &y)
	if err != nil {
		return nil, err
	}
	if jwk.D == "" {
		return pub, nil
	}
	var kp *P256KeyPair
	err = WithSecret(P256SecretKeyLength, func(buf []byte) error {
		if err := jwkDecodeCoordInto(jwk.D, buf); err != nil {
			return fmt.Errorf("invalid P-256 JWK \"d\": %w", err)
		}
		var perr error
		kp, perr = ParseSecretBytesP256(buf)
		return perr
	})
	if err != nil {
		return nil, err
	}
	if !ConstantTimeEqual(kp.PublicBytes(), pub.PublicBytes()) {
		kp.Destroy()
		return nil, fmt.Errorf("%w: P-256 JWK \"d\" does not match \"x\"/\"y\"", ErrInvalidKeyData)
	}
	return kp, nil
}

// Multibase returns the multibase string encoding of the public key,
// including a multicodec indicator and compressed point serialization.
func (k *P256KeyPair) Multibase() string {
	kbytes := k.PublicBytes()
	// multicodec p256-pub, code 0x1200, varint-encoded bytes: [0x80, 0x24]
	kbytes = append([]byte{0x80, 0x24}, kbytes...)
	return "z" + base58.Encode(kbytes)
}

// SecretMultibase returns the multibase string encoding of the secret key,
// including a multicodec indicator, or ErrMissingSecretKey when the secret
// half is absent.
func (k *P256KeyPair) SecretMultibase() (string, error) {
	if k.secret == nil {
		return "", ErrMissingSecretKey
	}
	var out string
	err := k.WithSecretBytes(func(sk []byte) error {
		// multicodec p256-priv, code 0x1306, varint-encoded bytes: [0x86, 0x26]
		kbytes := append([]byte{0x86, 0x26}, sk...)
		out = "z" + base58.Encode(kbytes)
		ZeroizeBytes(kbytes)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// DIDKey returns the did:key string encoding of the public key.
func (k *P256KeyPair) DIDKey() string {
	return "did:key:" + k.Multibase()
}

// Destroy zeroizes the secret half as far as the standard library allows,
// leaving a public-only key pair. Safe to call more than once.
func (k *P256KeyPair) Destroy() {
	if k.secret == nil {
		return
	}
	// big.Int exposes its backing words; overwrite them before dropping the
	// reference. The ecdh copy offers no wipe hook and is simply dropped.
	for i, bits := 0, k.secret.D.Bits(); i < len(bits); i++ {
		bits[i] = 0
	}
	k.secret = nil
	k.secretECDH = nil
}
