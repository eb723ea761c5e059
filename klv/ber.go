package klv

import (
	"errors"
	"math"
)

const (
	longFormFlag = 0x80
	// A length needing more than 8 octets cannot describe real data; the
	// field is treated as corrupt rather than decoded.
	maxLengthOctets = 8
)

var (
	ErrTruncatedLength = errors.New("buffer ends inside BER length field")
	ErrLengthTooLarge  = errors.New("BER length field not representable")
)

// AppendLength appends the BER encoding of n to dst and returns the
// extended slice. Short form is used below 128, minimal long form above.
// n must be non-negative.
func AppendLength(dst []byte, n int) []byte {
	if n < longFormFlag {
		return append(dst, byte(n))
	}
	var octets [maxLengthOctets]byte
	i := maxLengthOctets
	for v := uint64(n); v > 0; v >>= 8 {
		i--
		octets[i] = byte(v)
	}
	dst = append(dst, byte(longFormFlag|(maxLengthOctets-i)))
	return append(dst, octets[i:]...)
}

// DecodeLength reads a BER length from the front of buf. It returns the
// decoded length and the number of bytes consumed.
func DecodeLength(buf []byte) (length, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, ErrTruncatedLength
	}
	b := buf[0]
	if b < longFormFlag {
		return int(b), 1, nil
	}
	n := int(b &^ longFormFlag)
	if n == 0 {
		return 0, 1, nil
	}
	if n > maxLengthOctets {
		return 0, 0, ErrLengthTooLarge
	}
	if len(buf) < 1+n {
		return 0, 0, ErrTruncatedLength
	}
	var v uint64
	for _, o := range buf[1 : 1+n] {
		v = v<<8 | uint64(o)
	}
	if v > uint64(math.MaxInt) {
		return 0, 0, ErrLengthTooLarge
	}
	return int(v), 1 + n, nil
}
