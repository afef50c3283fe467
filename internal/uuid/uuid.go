// Package uuid generates and validates the session identifiers exchanged
// on the wire: canonical RFC 4122 version-4 UUIDs in their 36-character
// lowercase hyphenated form.
//
// Generation delegates to google/uuid's CSPRNG-backed random source but
// the textual grammar is checked by hand against the exact layout the
// protocol requires (hyphens at positions 8, 13, 18, 23, hex everywhere
// else) rather than trusting uuid.Parse, which also accepts braces, URNs,
// and Microsoft GUID forms that never appear on the wire.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// StringLen is the exact length of a canonical UUID string, matching
// SESSION_ID_LEN on the wire.
const StringLen = 36

var hyphenPositions = [4]int{8, 13, 18, 23}

// New generates a fresh version-4 UUID and returns its canonical string
// form. The version/variant nibbles are set by the google/uuid library
// per RFC 4122; New never returns an invalid string per Valid.
func New() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand is exhausted or unavailable — extremely unlikely on
		// any real system, and the daemon has no sane fallback.
		panic(fmt.Sprintf("uuid: random source failed: %v", err))
	}
	return id.String()
}

// Valid reports whether s is a syntactically valid canonical UUID string:
// exactly 36 characters, hyphens at positions 8/13/18/23, hex digits
// everywhere else. It does not care about version or variant bits — a
// client-supplied ID only needs to look like a UUID to pass this check;
// whether it names a real session is a separate question.
func Valid(s string) bool {
	if len(s) != StringLen {
		return false
	}
	for i := 0; i < StringLen; i++ {
		if isHyphenPos(i) {
			if s[i] != '-' {
				return false
			}
			continue
		}
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func isHyphenPos(i int) bool {
	for _, p := range hyphenPositions {
		if i == p {
			return true
		}
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
