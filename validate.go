package moinmoin

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPadID reports a pad id Etherpad would not accept.
	ErrInvalidPadID = errors.New("invalid pad id")
	// ErrInvalidRevision reports a negative or unparsable revision.
	ErrInvalidRevision = errors.New("invalid revision")
)

// Etherpad's own pad id rule: an optional group prefix, then 1 to 50
// characters other than '$'.
var padIDPattern = regexp.MustCompile(`^(g\.[a-zA-Z0-9]{16}\$)?[^$]{1,50}$`)

// ValidatePadID returns ErrInvalidPadID unless id is a usable pad id.
func ValidatePadID(id string) error {
	if !padIDPattern.MatchString(id) {
		return ErrInvalidPadID
	}
	if strings.ContainsAny(id, "/?#&") || strings.ContainsFunc(id, isControlRune) {
		return ErrInvalidPadID
	}
	return nil
}

// formFeed shows up in pad text now and then and breaks MoinMoin parsers.
const formFeed = '\f'

func stripFormFeed(s string) string {
	if strings.IndexByte(s, formFeed) < 0 {
		return s
	}
	return strings.ReplaceAll(s, string(formFeed), "")
}

func isControlRune(r rune) bool {
	return r < 0x20 || r == 0x7F
}
