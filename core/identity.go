package core

import (
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Identity is a lowercase-normalized wallet address bound to a session.
// It is immutable once attached to a session.
type Identity string

// NewIdentity normalizes a hex wallet address into an Identity.
// Returns ErrInvalidAddress if the input is not a 20-byte hex address.
func NewIdentity(address string) (Identity, error) {
	if !addressPattern.MatchString(address) {
		return "", ErrInvalidAddress
	}
	return Identity(strings.ToLower(address)), nil
}

// String returns the normalized address.
func (i Identity) String() string {
	return string(i)
}

// DisplayName returns a shortened form of the address for user-facing
// frames, e.g. "0x1234...abcd".
func (i Identity) DisplayName() string {
	s := string(i)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// Equal compares two identities case-insensitively.
func (i Identity) Equal(other string) bool {
	return string(i) == strings.ToLower(other)
}
