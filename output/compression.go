package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressionType is a precompressed variant of the bundle written next to it.
type CompressionType uint

const (
	// CompressionTypeGzip compresses through gzip
	CompressionTypeGzip CompressionType = iota
	// CompressionTypeBr compresses through brotli
	CompressionTypeBr
	// CompressionTypeZstd compresses through zstd
	CompressionTypeZstd
)

//nolint: gochecknoglobals
var compressionNames = map[CompressionType]string{
	CompressionTypeGzip: "gzip",
	CompressionTypeBr:   "br",
	CompressionTypeZstd: "zstd",
}

//nolint: gochecknoglobals
var compressionExtensions = map[CompressionType]string{
	CompressionTypeGzip: ".gz",
	CompressionTypeBr:   ".br",
	CompressionTypeZstd: ".zst",
}

func (c CompressionType) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CompressionType(%d)", c)
}

// Extension returns the file name suffix of the compressed variant.
func (c CompressionType) Extension() string {
	return compressionExtensions[c]
}

// CompressionTypeString returns the compression type named s.
func CompressionTypeString(s string) (CompressionType, error) {
	for c, name := range compressionNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%s does not belong to CompressionType values (gzip, br, zstd)", s)
}

func compress(c CompressionType, data []byte) ([]byte, error) {
	buf := new(bytes.Buffer)

	var w io.WriteCloser
	switch c {
	case CompressionTypeGzip:
		w = gzip.NewWriter(buf)
	case CompressionTypeBr:
		w = brotli.NewWriter(buf)
	case CompressionTypeZstd:
		enc, err := zstd.NewWriter(buf)
		if err != nil {
			return nil, err
		}
		w = enc
	default:
		return nil, fmt.Errorf("unknown compressionType %s", c)
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
