// Package klv extracts MISB Universal Set payloads from raw byte streams
// and splits them into tag-length-value fields.
package klv

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
)

// UniversalKey is the 16-byte MISB ST 0601 local set universal key.
var UniversalKey = [16]byte{
	0x06, 0x0E, 0x2B, 0x34, 0x02, 0x0B, 0x01, 0x01,
	0x0E, 0x01, 0x03, 0x01, 0x01, 0x00, 0x00, 0x00,
}

// DefaultMaxPayload bounds a single packet payload. ST 0601 local sets
// are a few hundred bytes in practice; anything beyond this is a corrupt
// length field, not data.
const DefaultMaxPayload = 1 << 24

// Scanner finds universal-key packets in an arbitrary byte stream and
// yields one Value payload at a time. It never buffers more than one
// payload, so arbitrarily long metadata tracks stream through in constant
// memory.
//
// On a first-byte match that is not followed by the rest of the key, the
// 15 bytes already read are dropped and scanning resumes after them. A
// real key starting inside that window is lost. This mirrors the lossy
// behavior of the capture tooling this scanner interoperates with;
// changing it would change which packets existing streams produce.
type Scanner struct {
	r          *bufio.Reader
	diag       *Diagnostics
	maxPayload int

	keyBuf [15]byte
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDiagnostics attaches counter collection to the scanner.
func WithDiagnostics(d *Diagnostics) Option {
	return func(s *Scanner) { s.diag = d }
}

// WithMaxPayload overrides the payload size bound.
func WithMaxPayload(n int) Option {
	return func(s *Scanner) { s.maxPayload = n }
}

// NewScanner wraps r. The reader is consumed byte-by-byte; wrapping an
// already-buffered source is fine.
func NewScanner(r io.Reader, opts ...Option) *Scanner {
	s := &Scanner{
		r:          bufio.NewReaderSize(r, 32*1024),
		maxPayload: DefaultMaxPayload,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next returns the next packet payload. It returns io.EOF at the end of
// the stream; trailing partial packets are dropped silently and also end
// the scan with io.EOF. Any other error comes from the underlying reader.
func (s *Scanner) Next() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			// A clean boundary between packets is the normal end.
			return nil, err
		}
		if b != UniversalKey[0] {
			continue
		}
		if _, err := io.ReadFull(s.r, s.keyBuf[:]); err != nil {
			s.diag.addTruncation()
			return nil, endOfStream(err)
		}
		if !bytes.Equal(s.keyBuf[:], UniversalKey[1:]) {
			s.diag.addNearMiss()
			continue
		}
		s.diag.addKeyHit()

		n, err := s.readLength()
		switch {
		case err == nil:
		case errors.Is(err, ErrLengthTooLarge):
			s.diag.addLengthSkip()
			continue
		default:
			s.diag.addTruncation()
			return nil, endOfStream(err)
		}
		if n > s.maxPayload {
			s.diag.addLengthSkip()
			continue
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(s.r, payload); err != nil {
			s.diag.addTruncation()
			return nil, endOfStream(err)
		}
		s.diag.addPacket()
		return payload, nil
	}
}

// readLength decodes a BER length from the stream.
func (s *Scanner) readLength() (int, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b < longFormFlag {
		return int(b), nil
	}
	n := int(b &^ longFormFlag)
	if n == 0 {
		return 0, nil
	}
	if n > maxLengthOctets {
		return 0, ErrLengthTooLarge
	}
	var buf [maxLengthOctets]byte
	if _, err := io.ReadFull(s.r, buf[:n]); err != nil {
		return 0, err
	}
	var v uint64
	for _, o := range buf[:n] {
		v = v<<8 | uint64(o)
	}
	if v > uint64(math.MaxInt) {
		return 0, ErrLengthTooLarge
	}
	return int(v), nil
}

// endOfStream folds partial-read errors into the scanner's termination
// contract: a stream that stops mid-structure ends the scan, it does not
// fail it.
func endOfStream(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}
