package deb

import "fmt"

// DescriptorError reports missing or malformed control metadata. Field names
// the offending control field. It is always returned before any archive bytes
// are produced.
type DescriptorError struct {
	Field  ControlField
	Reason string
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor: %s: %s", e.Field, e.Reason)
}

// EntryError reports an unsafe or malformed file entry. Path is the entry path
// as supplied by the caller.
type EntryError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return fmt.Sprintf("invalid entry %q: %s", e.Path, e.Reason)
}
