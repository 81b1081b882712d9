package crypto

import (
	"crypto/subtle"
	"runtime"
)

// ZeroizeBytes overwrites buf with zeros. The runtime.KeepAlive call prevents
// the compiler from eliminating the writes as dead stores (golang/go#33325).
//
// Go's garbage collector may still have made copies of the data elsewhere;
// this is the strongest sanitization available for heap bytes in Go, and it is
// applied deterministically rather than depending on collection timing.
func ZeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// ConstantTimeEqual reports whether a and b have identical contents without
// leaking where they differ. Returns false for mismatched lengths.
//
// Used for every security-sensitive byte comparison in this package; never
// compare secret-derived material with bytes.Equal.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecretBuffer is a fixed-length byte region which holds secret material and
// guarantees the region is overwritten when destroyed. It is the only type in
// this package permitted to own raw secret bytes outside an algorithm
// backend's internal scalar storage.
type SecretBuffer struct {
	data []byte
}

// NewSecretBuffer allocates a size-byte region and runs init against it. If
// init returns an error the region is zeroized and discarded, and the error
// is returned; no partially initialized buffer can be observed. A nil init
// yields an all-zero buffer.
func NewSecretBuffer(size int, init func(buf []byte) error) (*SecretBuffer, error) {
	buf := make([]byte, size)
	if init != nil {
		if err := init(buf); err != nil {
			ZeroizeBytes(buf)
			return nil, err
		}
	}
	return &SecretBuffer{data: buf}, nil
}

// Len returns the buffer length, or zero after Destroy.
func (b *SecretBuffer) Len() int {
	return len(b.data)
}

// With invokes f with the buffer contents. The slice passed to f aliases the
// buffer and must not be retained after f returns.
func (b *SecretBuffer) With(f func(buf []byte) error) error {
	return f(b.data)
}

// Destroy zeroizes the buffer and releases it. Safe to call more than once.
func (b *SecretBuffer) Destroy() {
	ZeroizeBytes(b.data)
	b.data = nil
}

// WithSecret allocates a size-byte scratch region, invokes f with it, and
// zeroizes the region on every exit path, including when f fails.
func WithSecret(size int, f func(buf []byte) error) error {
	buf, err := NewSecretBuffer(size, nil)
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return buf.With(f)
}
