// Cryptographic key pairs and operations for keyfold secure storage.
//
// This package provides a uniform representation of asymmetric key pairs
// across curve backends, so that storage and wallet code can generate, load,
// sign with, verify, exchange, and serialize keys without knowing which curve
// is in use. A key pair always carries a validated public half; the secret
// half is optional, and the operations requiring it are exposed as separate
// narrow interfaces ([SecretExporter], [Signer], [KeyExchanger], and so on)
// implemented by the backends which support them.
//
// The two currently supported curve types are:
//
//   - K-256/secp256k1/ES256K, internally implemented using
//     <github.com/decred/dcrd/dcrec/secp256k1/v4>
//   - P-256/secp256r1/ES256, internally implemented using golang's stdlib
//     cryptographic library
//
// Serializations are fixed-length and byte-exact: 32-byte secret scalars,
// 33-byte SEC1 compressed public points, 65-byte combined keypair bytes,
// 64-byte "r || s" signatures with no DER wrapping, and JWK objects with the
// canonical "kty"/"crv"/"x"/"y"/"d" field set. "Low-S" signatures are
// produced for both key types; K-256 signing additionally uses deterministic
// RFC 6979 nonces.
//
// Secret material is exposed to callers only through scoped closures backed
// by [SecretBuffer], which zeroizes on release. The backing key objects keep
// secret scalars in memory until Destroy is called.
package crypto
