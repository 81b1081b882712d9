package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// JWK is a JSON Web Key, as relevant to the elliptic curve keys supported by
// this package. Field order in the struct is the canonical encode order;
// decoding is order-insensitive, as usual for JSON objects.
//
// Coordinate and scalar fields are base64url without padding, each decoding
// to the curve's fixed byte length.
type JWK struct {
	KeyType string  `json:"kty"`
	Curve   string  `json:"crv"`
	X       string  `json:"x"`
	Y       string  `json:"y"`
	D       string  `json:"d,omitempty"`
	Use     string  `json:"use,omitempty"`
	KeyID   *string `json:"kid,omitempty"`
}

// ParseJWKBytes loads a key pair from a JWK serialized as JSON bytes. When
// the "d" field is present the result carries a secret half, cross-checked
// against the public coordinates.
func ParseJWKBytes(jwkBytes []byte) (KeyPair, error) {
	var jwk JWK
	if err := json.Unmarshal(jwkBytes, &jwk); err != nil {
		return nil, fmt.Errorf("%w: parsing JWK JSON: %v", ErrInvalidKeyData, err)
	}
	return ParseJWK(&jwk)
}

// ParseJWK loads a key pair from JWK fields, dispatching on the curve name.
func ParseJWK(jwk *JWK) (KeyPair, error) {
	if jwk.KeyType != jwkKeyTypeEC {
		return nil, fmt.Errorf("%w: JWK key type %q", ErrUnsupported, jwk.KeyType)
	}
	switch jwk.Curve {
	case JWKCurveK256:
		return parseJWKK256(jwk)
	case JWKCurveP256:
		return parseJWKP256(jwk)
	default:
		return nil, fmt.Errorf("%w: JWK curve %q", ErrUnsupported, jwk.Curve)
	}
}

// jwkEncodeCoord encodes coordinate or scalar bytes as base64url, no padding.
func jwkEncodeCoord(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// jwkDecodeCoord decodes a base64url field and requires the exact expected
// byte length.
func jwkDecodeCoord(s string, size int) ([]byte, error) {
	buf, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWK base64 encoding: %v", ErrInvalidKeyData, err)
	}
	if len(buf) != size {
		ZeroizeBytes(buf)
		return nil, fmt.Errorf("%w: JWK field must decode to %d bytes, got %d",
			ErrInvalidKeyData, size, len(buf))
	}
	return buf, nil
}

// jwkDecodeCoordInto decodes a base64url field into an existing fixed-length
// buffer, for fields which must not escape a secure-buffer scope.
func jwkDecodeCoordInto(s string, buf []byte) error {
	if base64.RawURLEncoding.DecodedLen(len(s)) > len(buf) {
		return fmt.Errorf("%w: JWK field must decode to %d bytes", ErrInvalidKeyData, len(buf))
	}
	n, err := base64.RawURLEncoding.Decode(buf, []byte(s))
	if err != nil {
		ZeroizeBytes(buf)
		return fmt.Errorf("%w: invalid JWK base64 encoding: %v", ErrInvalidKeyData, err)
	}
	if n != len(buf) {
		ZeroizeBytes(buf)
		return fmt.Errorf("%w: JWK field must decode to %d bytes, got %d",
			ErrInvalidKeyData, len(buf), n)
	}
	return nil
}
