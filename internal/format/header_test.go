package format

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderEncode(t *testing.T) {
	h := Header{Type: TypeNameIndex, Version: 1, Flags: FlagCompressed}
	buf := h.Encode()

	if buf[0] != Signature {
		t.Errorf("expected signature 0x%02x, got 0x%02x", Signature, buf[0])
	}
	if buf[1] != TypeNameIndex {
		t.Errorf("expected type 0x%02x, got 0x%02x", TypeNameIndex, buf[1])
	}
	if buf[2] != 1 {
		t.Errorf("expected version 1, got %d", buf[2])
	}
	if buf[3] != FlagCompressed {
		t.Errorf("expected flags 0x01, got 0x%02x", buf[3])
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Header{Type: TypeNameIndex, Version: 3, Flags: 0x10}
	if n, err := want.WriteTo(&buf); err != nil || n != HeaderSize {
		t.Fatalf("WriteTo = %d, %v", n, err)
	}
	buf.WriteString("body")

	got, err := Read(&buf, TypeNameIndex, 3)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if buf.String() != "body" {
		t.Errorf("Read consumed too much: remaining %q", buf.String())
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{Signature, TypeNameIndex}); !errors.Is(err, ErrHeaderTooSmall) {
		t.Errorf("short buffer: %v", err)
	}
	if _, err := Decode([]byte{'x', TypeNameIndex, 1, 0}); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("bad signature: %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrHeaderTooSmall},
		{"short", []byte{Signature}, ErrHeaderTooSmall},
		{"signature", []byte{'z', TypeNameIndex, 1, 0}, ErrSignatureMismatch},
		{"type", []byte{Signature, 'q', 1, 0}, ErrTypeMismatch},
		{"version", []byte{Signature, TypeNameIndex, 2, 0}, ErrVersionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), TypeNameIndex, 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("Read = %v, want %v", err, tt.want)
			}
		})
	}
}
