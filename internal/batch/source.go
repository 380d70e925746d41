package batch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Encoding is the container format of an input file.
type Encoding string

const (
	// EncodingText is uncompressed UTF-8 text.
	EncodingText Encoding = "text"
	// EncodingGzip is gzip-compressed text.
	EncodingGzip Encoding = "gzip"
	// EncodingZstd is zstd-compressed text.
	EncodingZstd Encoding = "zstd"
)

// openText sniffs r for a compression header and returns a reader of the plain text.
// The close function releases the decoder and is safe to call on every path.
func openText(r io.Reader) (io.Reader, Encoding, func(), error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, "", func() {}, fmt.Errorf("failed to read input header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, "", func() {}, fmt.Errorf("failed to open gzip input: %w", err)
		}
		return gz, EncodingGzip, func() { _ = gz.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, "", func() {}, fmt.Errorf("failed to open zstd input: %w", err)
		}
		return zr, EncodingZstd, zr.Close, nil
	default:
		return buffered, EncodingText, func() {}, nil
	}
}
