package metadata

import (
	"fmt"
	"strings"
)

// MalformedMetadataError reports a document that is missing a required
// field, carries a field of the wrong type, or holds an unparsable value.
type MalformedMetadataError struct {
	Section string // "interfaces", "bonds", ... or "" for the document root
	Index   int    // position within Section, -1 for the document root
	ID      string // record identifier when known
	Field   string
	Reason  string
}

func (e *MalformedMetadataError) Error() string {
	var b strings.Builder
	b.WriteString("malformed metadata: ")
	if e.Section != "" {
		if e.Index >= 0 {
			fmt.Fprintf(&b, "%s[%d]", e.Section, e.Index)
		} else {
			b.WriteString(e.Section)
		}
		if e.ID != "" {
			fmt.Fprintf(&b, " (id %q)", e.ID)
		}
		b.WriteString(": ")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q: ", e.Field)
	}
	b.WriteString(e.Reason)
	return b.String()
}

func malformed(section string, index int, id, field, format string, args ...any) *MalformedMetadataError {
	return &MalformedMetadataError{
		Section: section,
		Index:   index,
		ID:      id,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	}
}
