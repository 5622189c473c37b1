package record

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encoding identifies how a data file is compressed, chosen by file extension.
type Encoding string

const (
	EncodingIdentity Encoding = "identity"
	EncodingZstd     Encoding = "zstd"
	EncodingGzip     Encoding = "gzip"
	EncodingBrotli   Encoding = "br"
)

// EncodingFor returns the encoding implied by a path's extension.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return EncodingZstd
	case ".gz":
		return EncodingGzip
	case ".br":
		return EncodingBrotli
	default:
		return EncodingIdentity
	}
}

// readCloser pairs a decoding reader with the close functions it depends on.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openDecoded opens path and wraps it in the decompressor for its extension.
func openDecoded(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	switch EncodingFor(path) {
	case EncodingZstd:
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open zstd reader: %w", err)
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil

	case EncodingGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &readCloser{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil

	case EncodingBrotli:
		return &readCloser{Reader: brotli.NewReader(f), closers: []func() error{f.Close}}, nil

	default:
		return f, nil
	}
}
