package deb

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Compression selects the encoding of the control and data archive members.
type Compression int

const (
	// Gzip is the default and matches what dpkg-deb produces out of the box.
	Gzip Compression = iota
	// Xz produces control.tar.xz and data.tar.xz members. Supported by dpkg
	// since 1.15.6.
	Xz
)

// extension returns the member filename suffix for this compression.
func (c Compression) extension() string {
	if c == Xz {
		return ".xz"
	}
	return ".gz"
}

// newWriter wraps w in a compressor at a fixed level so that identical input
// always yields identical bytes.
func (c Compression) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case Xz:
		return xz.NewWriter(w)
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}
