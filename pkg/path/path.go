// Package path addresses values inside nested form data. A Path is an ordered
// list of segments; its dotted string form ("friends.0.name") is the identity
// used for error and touched lookups across the engine.
package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is a single step in a Path. Key always carries the textual form of
// the segment, so an index segment can still address a record property whose
// name is numeric.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is an ordered sequence of segments.
type Path []Segment

// Key returns a record segment.
func Key(name string) Segment {
	return Segment{Key: name}
}

// Index returns an array index segment.
func Index(i int) Segment {
	return Segment{Key: strconv.Itoa(i), Index: i, IsIndex: true}
}

// ParseSegment classifies a raw segment. Canonical decimal segments ("0",
// "12") become index segments; anything else, including "01", is a key.
func ParseSegment(raw string) Segment {
	if isIndex(raw) {
		if i, err := strconv.Atoi(raw); err == nil {
			return Segment{Key: raw, Index: i, IsIndex: true}
		}
	}
	return Key(raw)
}

// Parse splits a dotted path. The empty string yields the empty (root) path.
func Parse(dotted string) Path {
	if dotted == "" {
		return nil
	}
	parts := strings.Split(dotted, ".")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		out = append(out, ParseSegment(part))
	}
	return out
}

// New builds a Path from string, int or Segment keys. Strings are classified
// like Parse does for a single segment; they are not split on dots.
func New(keys ...any) Path {
	out := make(Path, 0, len(keys))
	for _, key := range keys {
		out = append(out, toSegment(key))
	}
	return out
}

func toSegment(key any) Segment {
	switch k := key.(type) {
	case Segment:
		return k
	case int:
		return Index(k)
	case int64:
		return Index(int(k))
	case string:
		return ParseSegment(k)
	default:
		return ParseSegment(fmt.Sprint(k))
	}
}

// String renders the canonical dotted form.
func (p Path) String() string {
	switch len(p) {
	case 0:
		return ""
	case 1:
		return p[0].Key
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}

// Concat returns a new Path with keys appended. The receiver is not modified.
func (p Path) Concat(keys ...any) Path {
	out := make(Path, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, New(keys...)...)
}

// Join appends another path.
func (p Path) Join(other Path) Path {
	out := make(Path, 0, len(p)+len(other))
	out = append(out, p...)
	return append(out, other...)
}

// Parent splits the path into its parent and final segment. ok is false for
// the root path.
func (p Path) Parent() (parent Path, last Segment, ok bool) {
	if len(p) == 0 {
		return nil, Segment{}, false
	}
	return p[:len(p)-1:len(p)-1], p[len(p)-1], true
}

// Equal compares segment keys.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].Key != other[i].Key {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading segments of p. The
// comparison is segment-wise: "friends.1" is not a prefix of "friends.10".
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// Overlaps reports whether either path is a prefix of the other.
func (p Path) Overlaps(other Path) bool {
	return p.HasPrefix(other) || other.HasPrefix(p)
}

// FromPointer converts a JSON pointer ("/friends/0/name") into a Path,
// unescaping "~1" and "~0".
func FromPointer(pointer string) Path {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(pointer, "#"), "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, ParseSegment(part))
	}
	return out
}

// FromKeys converts raw string segments (as reported by schema backends) into
// a Path.
func FromKeys(keys []string) Path {
	if len(keys) == 0 {
		return nil
	}
	out := make(Path, 0, len(keys))
	for _, key := range keys {
		out = append(out, ParseSegment(key))
	}
	return out
}

// isIndex accepts canonical decimal indices only, so "01" stays a record key
// and every element has exactly one dotted identity.
func isIndex(value string) bool {
	if value == "" || (len(value) > 1 && value[0] == '0') {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
