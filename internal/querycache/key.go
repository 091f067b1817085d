package querycache

import "strings"

// Key identifies a cached fetch as an ordered tuple of primitives, e.g.
// K("groups", teamID). Lookup, coalescing and invalidation all operate on the
// exact element order; no normalization is applied.
type Key []string

// K builds a key from its parts.
func K(parts ...string) Key {
	return Key(parts)
}

// HasPrefix reports whether the key starts with the given prefix,
// element-wise.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// canonical is the map and singleflight key. The separator cannot occur in
// key parts coming from URL segments or entity kinds.
func (k Key) canonical() string {
	return strings.Join(k, "\x1f")
}
