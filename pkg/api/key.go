package api

import "unicode"

const maxKeyLen = 16

// ValidKey checks a client-supplied session key: 1-16 characters,
// no whitespace and no ASCII punctuation. Anything failing the check
// is dropped by the relay without a reply.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	n := 0
	for _, r := range key {
		n++
		if n > maxKeyLen {
			return false
		}
		if unicode.IsSpace(r) {
			return false
		}
		switch {
		case r >= '!' && r <= '/',
			r >= ':' && r <= '@',
			r >= '[' && r <= '`',
			r >= '{' && r <= '~':
			return false
		}
	}
	return true
}
