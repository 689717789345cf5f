// Package identity holds the single place where external token identifiers are
// reduced to the raw subject stored on user records.
package identity

import "strings"

// Normalize returns the raw subject of a token identifier. Identifiers shaped as
// "issuer|subject" keep only the trailing segment, anything else is returned trimmed.
func Normalize(tokenIdentifier string) string {
	t := strings.TrimSpace(tokenIdentifier)
	if i := strings.LastIndex(t, "|"); i >= 0 {
		return strings.TrimSpace(t[i+1:])
	}
	return t
}
