// Package format provides the header shared by airportsearch binary files.
package format

import (
	"errors"
	"fmt"
	"io"
)

// Header layout (4 bytes):
//
//	signature (1 byte, 'a' = 0x61)
//	type (1 byte, identifies format)
//	version (1 byte)
//	flags (1 byte, reserved)
//
// Type codes:
//
//	'n' = name index snapshot
const (
	Signature  = 'a'
	HeaderSize = 4

	TypeNameIndex = 'n'

	// FlagCompressed marks a zstd-compressed body.
	FlagCompressed = 0x01
)

var (
	ErrHeaderTooSmall    = errors.New("header too small")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrVersionMismatch   = errors.New("version mismatch")
)

// Header represents the common 4-byte header.
type Header struct {
	Type    byte
	Version byte
	Flags   byte
}

// Encode returns the header bytes.
func (h Header) Encode() [HeaderSize]byte {
	return [HeaderSize]byte{Signature, h.Type, h.Version, h.Flags}
}

// WriteTo writes the header to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	buf := h.Encode()
	n, err := w.Write(buf[:])
	return int64(n), err
}

// Decode reads a header from the given buffer.
func Decode(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrHeaderTooSmall
	}
	if buf[0] != Signature {
		return Header{}, ErrSignatureMismatch
	}
	return Header{
		Type:    buf[1],
		Version: buf[2],
		Flags:   buf[3],
	}, nil
}

// Read consumes a header from r and checks its type and version.
func Read(r io.Reader, expectedType, expectedVersion byte) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, ErrHeaderTooSmall
		}
		return Header{}, err
	}
	h, err := Decode(buf[:])
	if err != nil {
		return Header{}, err
	}
	if h.Type != expectedType {
		return Header{}, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, h.Type, expectedType)
	}
	if h.Version != expectedVersion {
		return Header{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, h.Version, expectedVersion)
	}
	return h, nil
}
