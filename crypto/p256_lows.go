package crypto

import (
	"crypto/elliptic"
	"math/big"
)

var curveN_P256 *big.Int = elliptic.P256().Params().N
var curveHalfOrder_P256 *big.Int = new(big.Int).Rsh(curveN_P256, 1)

// Checks if the 'S' value from a P-256 signature is "low-S".
func sigSIsLowS_P256(s *big.Int) bool {
	return s.Cmp(curveHalfOrder_P256) != 1
}

// Ensures that the 'S' value from a P-256 signature is the "low-S" variant,
// replacing s with N - s when it falls in the upper half of the scalar range.
func sigSToLowS_P256(s *big.Int) *big.Int {
	if !sigSIsLowS_P256(s) {
		s.Sub(curveN_P256, s)
	}
	return s
}
