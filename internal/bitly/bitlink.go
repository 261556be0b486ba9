package bitly

import (
	"net/url"
	"strings"
)

// schemeDelim separates a URL scheme from its domain.
const schemeDelim = "://"

// EncodeBitlink turns a full short URL into the domain/hash identifier the
// Bitly metrics endpoints expect: the scheme prefix is stripped and each path
// segment is escaped, keeping the "/" between domain and hash intact.
// A URL with no scheme prefix is used as-is.
func EncodeBitlink(shortURL string) string {
	s := shortURL
	if i := strings.Index(s, schemeDelim); i >= 0 {
		s = s[i+len(schemeDelim):]
	}

	segments := strings.Split(s, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
