package domain

import "strings"

// DefaultSourceExtension is the file extension the external compiler accepts.
const DefaultSourceExtension = ".proto"

// PathFilter decides whether a file name is a recognized interface-definition
// source. It is a pure predicate: no state beyond the configured extension,
// no I/O.
type PathFilter struct {
	// Extension is the required suffix including the leading dot, e.g. ".proto".
	Extension string
}

// NewPathFilter creates a filter for the given extension, falling back to
// DefaultSourceExtension when the extension is empty.
func NewPathFilter(extension string) PathFilter {
	if extension == "" {
		extension = DefaultSourceExtension
	}
	return PathFilter{Extension: extension}
}

// Matches reports whether name (a bare file name, not a path) is a source
// file. Names without a dot never match. The comparison covers the substring
// from the last dot to the end and is case-sensitive, so "Foo.PROTO" is
// excluded even on case-insensitive filesystems.
func (f PathFilter) Matches(name string) bool {
	periodIndex := strings.LastIndex(name, ".")
	if periodIndex == -1 {
		// No file extension, so not a source file.
		return false
	}
	return name[periodIndex:] == f.Extension
}
