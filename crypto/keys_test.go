package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAlgorithms = []Algorithm{AlgK256, AlgP256}

func TestKeyPairBasics(t *testing.T) {
	assert := assert.New(t)

	// try signing/verifying a couple of different message sizes. these all
	// just get hashed.
	msg := []byte("test-message")
	midMsg := make([]byte, 13*1024)
	_, err := rand.Read(midMsg)
	require.NoError(t, err)
	bigMsg := make([]byte, 4*1024*1024)
	_, err = rand.Read(bigMsg)
	require.NoError(t, err)

	for _, alg := range testAlgorithms {
		kp, err := GenerateKeyPair(alg, nil)
		require.NoError(t, err)
		assert.Equal(alg, kp.Algorithm())
		assert.True(kp.HasSecret())

		// secret bytes round-trip through the generic parser
		var skBytes []byte
		err = kp.(SecretExporter).WithSecretBytes(func(sk []byte) error {
			skBytes = append([]byte(nil), sk...)
			return nil
		})
		require.NoError(t, err)
		assert.Len(skBytes, 32)
		fromSecret, err := ParseSecretBytes(alg, skBytes)
		require.NoError(t, err)
		assert.True(kp.Equal(fromSecret))

		// keypair bytes round-trip
		var kpBytes []byte
		err = kp.(KeypairExporter).WithKeypairBytes(func(b []byte) error {
			kpBytes = append([]byte(nil), b...)
			return nil
		})
		require.NoError(t, err)
		assert.Len(kpBytes, 65)
		fromKeypair, err := ParseKeypairBytes(alg, kpBytes)
		require.NoError(t, err)
		assert.True(kp.Equal(fromKeypair))
		assert.True(fromKeypair.HasSecret())

		// public bytes round-trip, compressed and uncompressed
		pub, err := ParsePublicBytes(alg, kp.PublicBytes())
		require.NoError(t, err)
		assert.True(kp.Equal(pub))
		assert.False(pub.HasSecret())
		pub2, err := ParsePublicUncompressedBytes(alg, kp.UncompressedPublicBytes())
		require.NoError(t, err)
		assert.True(pub.Equal(pub2))

		// sign with the secret pair, verify with the public-only pair
		for _, m := range [][]byte{msg, midMsg, bigMsg} {
			sig, err := kp.(Signer).SignMessage(m, SigTypeDefault)
			require.NoError(t, err)
			assert.Len(sig, 64)
			valid, err := pub.(Verifier).VerifySignature(m, sig, SigTypeDefault)
			assert.NoError(err)
			assert.True(valid)
		}
	}
}

func TestKeyPairJWKRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, alg := range testAlgorithms {
		kp, err := GenerateKeyPair(alg, nil)
		require.NoError(t, err)

		jwkPub, err := kp.(JWKExporter).JWK(false)
		require.NoError(t, err)
		assert.Equal("", jwkPub.D)
		pub, err := ParseJWK(jwkPub)
		require.NoError(t, err)
		assert.False(pub.HasSecret())
		assert.Equal(kp.PublicBytes(), pub.PublicBytes())

		jwkSecret, err := kp.(JWKExporter).JWK(true)
		require.NoError(t, err)
		assert.NotEqual("", jwkSecret.D)
		loaded, err := ParseJWK(jwkSecret)
		require.NoError(t, err)
		assert.True(loaded.HasSecret())
		assert.True(kp.Equal(loaded))
	}
}

func TestKeyPairMultibase(t *testing.T) {
	assert := assert.New(t)

	for _, alg := range testAlgorithms {
		kp, err := GenerateKeyPair(alg, nil)
		require.NoError(t, err)

		var multibase, didKey string
		switch k := kp.(type) {
		case *K256KeyPair:
			multibase, didKey = k.Multibase(), k.DIDKey()
		case *P256KeyPair:
			multibase, didKey = k.Multibase(), k.DIDKey()
		}

		fromMB, err := ParsePublicMultibase(multibase)
		require.NoError(t, err)
		assert.True(kp.Equal(fromMB))

		fromDID, err := ParsePublicDIDKey(didKey)
		require.NoError(t, err)
		assert.True(kp.Equal(fromDID))
		assert.Equal(alg, fromDID.Algorithm())
	}

	_, err := ParsePublicDIDKey("did:web:example.com")
	assert.ErrorIs(err, ErrInvalidKeyData)
	_, err = ParsePublicMultibase("uMTIz")
	assert.ErrorIs(err, ErrInvalidKeyData)
}

func TestKeyExchangeAlgorithmMismatch(t *testing.T) {
	assert := assert.New(t)

	k256Pair, err := GenerateKeyPairK256(nil)
	require.NoError(t, err)
	p256Pair, err := GenerateKeyPairP256(nil)
	require.NoError(t, err)

	_, err = k256Pair.KeyExchange(p256Pair)
	assert.ErrorIs(err, ErrUnsupported)
	_, err = p256Pair.KeyExchange(k256Pair)
	assert.ErrorIs(err, ErrUnsupported)

	assert.False(k256Pair.Equal(p256Pair))
}

func TestGenerateUnique(t *testing.T) {
	assert := assert.New(t)

	for _, alg := range testAlgorithms {
		a, err := GenerateKeyPair(alg, nil)
		require.NoError(t, err)
		b, err := GenerateKeyPair(alg, nil)
		require.NoError(t, err)
		assert.False(a.Equal(b))
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	assert := assert.New(t)

	_, err := GenerateKeyPair(Algorithm(99), nil)
	assert.ErrorIs(err, ErrUnsupported)
	_, err = ParseSecretBytes(Algorithm(99), make([]byte, 32))
	assert.ErrorIs(err, ErrUnsupported)
	_, err = ParsePublicBytes(Algorithm(99), make([]byte, 33))
	assert.ErrorIs(err, ErrUnsupported)
	_, err = ParseKeypairBytes(Algorithm(99), make([]byte, 65))
	assert.ErrorIs(err, ErrUnsupported)
}
