package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SignatureFixture struct {
	Algorithm       string `json:"algorithm"`
	SecretKeyBase64 string `json:"secretKeyBase64"`
	PublicKeyHex    string `json:"publicKeyHex"`
	MessageBase64   string `json:"messageBase64"`
	SignatureHex    string `json:"signatureHex"`
	ValidSignature  bool   `json:"validSignature"`
}

func TestK256SignatureFixtures(t *testing.T) {
	fixBytes, err := os.ReadFile("testdata/signature-fixtures.json")
	require.NoError(t, err)

	var fixtures []SignatureFixture
	require.NoError(t, json.Unmarshal(fixBytes, &fixtures))

	for _, row := range fixtures {
		testK256SignatureFixture(t, row)
	}
}

func testK256SignatureFixture(t *testing.T, row SignatureFixture) {
	assert := assert.New(t)

	skBytes, err := base64.RawURLEncoding.DecodeString(row.SecretKeyBase64)
	require.NoError(t, err)
	pkBytes, err := hex.DecodeString(row.PublicKeyHex)
	require.NoError(t, err)
	msgBytes, err := base64.StdEncoding.DecodeString(row.MessageBase64)
	require.NoError(t, err)
	sigBytes, err := hex.DecodeString(row.SignatureHex)
	require.NoError(t, err)

	kp, err := ParseSecretBytesK256(skBytes)
	require.NoError(t, err)
	assert.Equal(pkBytes, kp.PublicBytes())

	pub, err := ParsePublicBytesK256(pkBytes)
	require.NoError(t, err)
	assert.True(kp.Equal(pub))

	// verification never errors for well-typed inputs, it just rejects
	valid, err := kp.VerifySignature(msgBytes, sigBytes, SigTypeDefault)
	assert.NoError(err)
	assert.Equal(row.ValidSignature, valid)

	valid, err = pub.VerifySignature(msgBytes, sigBytes, SigTypeES256K)
	assert.NoError(err)
	assert.Equal(row.ValidSignature, valid)
}

func TestK256SignVerifyExpected(t *testing.T) {
	assert := assert.New(t)

	testMsg := []byte("This is a dummy message for use with tests")
	testSig, err := hex.DecodeString(
		"a2a3affbe18cda8c5a7b6375f05b304c2303ab8beb21428709a43a519f8f946f" +
			"6ffa7966afdb337e9b1f70bb575282e71d4fe5bbe6bfa97b229d6bd7e97df1e5")
	require.NoError(t, err)
	testPvt, err := base64.RawURLEncoding.DecodeString("jv_VrhPomm6_WOzb74xF4eMI0hu9p0W1Zlxi0nz8AFs")
	require.NoError(t, err)

	kp, err := ParseSecretBytesK256(testPvt)
	require.NoError(t, err)

	// deterministic signing: same message, same bytes, every time
	sig, err := kp.SignMessage(testMsg, SigTypeDefault)
	assert.NoError(err)
	assert.Equal(testSig, sig)
	sig2, err := kp.SignMessage(testMsg, SigTypeES256K)
	assert.NoError(err)
	assert.Equal(sig, sig2)

	valid, err := kp.VerifySignature(testMsg, sig, SigTypeDefault)
	assert.NoError(err)
	assert.True(valid)

	valid, err = kp.VerifySignature([]byte("Not the message"), sig, SigTypeDefault)
	assert.NoError(err)
	assert.False(valid)

	valid, err = kp.VerifySignature(testMsg, make([]byte, 64), SigTypeDefault)
	assert.NoError(err)
	assert.False(valid)

	valid, err = kp.VerifySignature(testMsg, sig[:63], SigTypeDefault)
	assert.NoError(err)
	assert.False(valid)

	// foreign signature types are refused rather than silently rejected
	_, err = kp.SignMessage(testMsg, SigTypeES256)
	assert.ErrorIs(err, ErrUnsupported)
	_, err = kp.VerifySignature(testMsg, sig, SigTypeES256)
	assert.ErrorIs(err, ErrUnsupported)
}

func TestK256JWKExpected(t *testing.T) {
	assert := assert.New(t)

	// from https://identity.foundation/EcdsaSecp256k1RecoverySignature2020/
	testPvtB64 := "rhYFsBPF9q3-uZThy7B3c4LDF_8wnozFUAEm5LLC4Zw"
	testX := "dWCvM4fTdeM0KmloF57zxtBPXTOythHPMm1HCLrdd3A"
	testY := "36uMVGM7hnw-N6GnjFcihWE3SkrhMLzzLCdPMXPEXlA"
	testPubHex := "027560af3387d375e3342a6968179ef3c6d04f5d33b2b611cf326d4708badd7770"

	testPvt, err := base64.RawURLEncoding.DecodeString(testPvtB64)
	require.NoError(t, err)
	sk, err := ParseSecretBytesK256(testPvt)
	require.NoError(t, err)

	assert.Equal(testPubHex, hex.EncodeToString(sk.PublicBytes()))

	jwk, err := sk.JWK(false)
	require.NoError(t, err)
	assert.Equal("EC", jwk.KeyType)
	assert.Equal(JWKCurveK256, jwk.Curve)
	assert.Equal(testX, jwk.X)
	assert.Equal(testY, jwk.Y)
	assert.Equal("", jwk.D)

	pkLoad, err := ParseJWK(jwk)
	require.NoError(t, err)
	assert.False(pkLoad.HasSecret())
	assert.Equal(sk.PublicBytes(), pkLoad.PublicBytes())

	jwkSecret, err := sk.JWK(true)
	require.NoError(t, err)
	assert.Equal(testX, jwkSecret.X)
	assert.Equal(testY, jwkSecret.Y)
	assert.Equal(testPvtB64, jwkSecret.D)

	skLoad, err := ParseJWK(jwkSecret)
	require.NoError(t, err)
	assert.True(skLoad.HasSecret())
	assertKeypairBytesEqual(t, sk, skLoad.(*K256KeyPair))
}

func TestK256KeyExchange(t *testing.T) {
	assert := assert.New(t)

	kp1, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	kp2, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)

	// independent generations never collide
	assert.NotEqual(kp1.PublicBytes(), kp2.PublicBytes())

	xch1, err := kp1.KeyExchange(kp2)
	assert.NoError(err)
	xch2, err := kp2.KeyExchange(kp1)
	assert.NoError(err)
	assert.Len(xch1, K256SharedSecretLength)
	assert.Equal(xch1, xch2)

	pub, err := ParsePublicBytesK256(kp2.PublicBytes())
	require.NoError(t, err)
	_, err = pub.KeyExchange(kp1)
	assert.ErrorIs(err, ErrMissingSecretKey)
}

func TestK256RoundTripBytes(t *testing.T) {
	assert := assert.New(t)

	kp, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)

	var exported []byte
	err = kp.WithKeypairBytes(func(b []byte) error {
		exported = append([]byte(nil), b...)
		return nil
	})
	require.NoError(t, err)
	assert.Len(exported, K256KeypairLength)

	cmp, err := ParseKeypairBytesK256(exported)
	require.NoError(t, err)
	assertKeypairBytesEqual(t, kp, cmp)

	// secret bytes round-trip as well
	var skBytes []byte
	err = kp.WithSecretBytes(func(b []byte) error {
		skBytes = append([]byte(nil), b...)
		return nil
	})
	require.NoError(t, err)
	assert.Len(skBytes, K256SecretKeyLength)
	fromSecret, err := ParseSecretBytesK256(skBytes)
	require.NoError(t, err)
	assert.Equal(kp.PublicBytes(), fromSecret.PublicBytes())
}

func TestK256Rejections(t *testing.T) {
	assert := assert.New(t)

	// wrong lengths
	_, err := ParseSecretBytesK256(make([]byte, 31))
	assert.ErrorIs(err, ErrInvalidKeyData)
	_, err = ParsePublicBytesK256(make([]byte, 32))
	assert.ErrorIs(err, ErrInvalidKeyData)
	_, err = ParseKeypairBytesK256(make([]byte, 64))
	assert.ErrorIs(err, ErrInvalidKeyData)

	// zero scalar and out-of-range scalar
	_, err = ParseSecretBytesK256(make([]byte, 32))
	assert.ErrorIs(err, ErrInvalidKeyData)
	overflow := make([]byte, 32)
	for i := range overflow {
		overflow[i] = 0xFF
	}
	_, err = ParseSecretBytesK256(overflow)
	assert.ErrorIs(err, ErrInvalidKeyData)

	// x-coordinate with no square root on the curve
	notOnCurve := append([]byte{0x02}, overflow...)
	_, err = ParsePublicBytesK256(notOnCurve)
	assert.ErrorIs(err, ErrInvalidKeyData)

	// keypair bytes where the public half belongs to a different secret
	kpA, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	kpB, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	var mismatched []byte
	err = kpA.WithSecretBytes(func(sk []byte) error {
		mismatched = append(append([]byte(nil), sk...), kpB.PublicBytes()...)
		return nil
	})
	require.NoError(t, err)
	_, err = ParseKeypairBytesK256(mismatched)
	assert.ErrorIs(err, ErrInvalidKeyData)
}

func TestK256PublicOnly(t *testing.T) {
	assert := assert.New(t)

	kp, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	pub, err := ParsePublicBytesK256(kp.PublicBytes())
	require.NoError(t, err)

	assert.False(pub.HasSecret())

	// secret export is an absence signal, not an error
	err = pub.WithSecretBytes(func(sk []byte) error {
		assert.Nil(sk)
		return nil
	})
	assert.NoError(err)
	err = pub.WithKeypairBytes(func(b []byte) error {
		assert.Nil(b)
		return nil
	})
	assert.NoError(err)

	_, err = pub.SignMessage([]byte("msg"), SigTypeDefault)
	assert.ErrorIs(err, ErrUnsupported)

	// signatures from the secret pair still verify under the public-only pair
	sig, err := kp.SignMessage([]byte("msg"), SigTypeDefault)
	require.NoError(t, err)
	valid, err := pub.VerifySignature([]byte("msg"), sig, SigTypeDefault)
	assert.NoError(err)
	assert.True(valid)

	// uncompressed form round-trips to the same key
	uncompressed := kp.UncompressedPublicBytes()
	assert.Len(uncompressed, 65)
	pub2, err := ParsePublicUncompressedBytesK256(uncompressed)
	require.NoError(t, err)
	assert.True(pub.Equal(pub2))
}

func TestK256Destroy(t *testing.T) {
	assert := assert.New(t)

	kp, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	msg := []byte("before destroy")
	sig, err := kp.SignMessage(msg, SigTypeDefault)
	require.NoError(t, err)

	kp.Destroy()
	kp.Destroy() // idempotent

	assert.False(kp.HasSecret())
	_, err = kp.SignMessage(msg, SigTypeDefault)
	assert.ErrorIs(err, ErrUnsupported)
	_, err = kp.KeyExchange(kp)
	assert.ErrorIs(err, ErrMissingSecretKey)

	// public half survives
	valid, err := kp.VerifySignature(msg, sig, SigTypeDefault)
	assert.NoError(err)
	assert.True(valid)
}

// assertKeypairBytesEqual compares the full keypair byte exports of two key
// pairs which both carry secrets.
func assertKeypairBytesEqual(t *testing.T, a, b *K256KeyPair) {
	t.Helper()
	err := a.WithKeypairBytes(func(ab []byte) error {
		return b.WithKeypairBytes(func(bb []byte) error {
			if !assert.Equal(t, ab, bb) {
				return errors.New("keypair bytes differ")
			}
			return nil
		})
	})
	assert.NoError(t, err)
}
