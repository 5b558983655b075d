package deb

import (
	"time"

	"github.com/blakesmith/ar"
)

// addArMember writes a named byte slice as a member of the outer AR archive.
// It constructs the AR header with mode 0644 and the supplied timestamp; the
// caller passes the package's fixed build time to keep the output reproducible.
func addArMember(w *ar.Writer, name string, body []byte, modTime time.Time) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
