// Package headers parses "Key: Value" header strings from config and flags.
package headers

import (
	"fmt"
	"net/textproto"
	"strings"
)

// ParseHeaders converts an array of header strings ("Key: Value") into a map
// keyed by canonical header name. Entries without a colon or with an empty
// name are rejected; later duplicates override earlier ones.
func ParseHeaders(h []string) (map[string]string, error) {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		parts := strings.SplitN(hdr, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", hdr)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("invalid header name in %q", hdr)
		}
		m[textproto.CanonicalMIMEHeaderKey(key)] = strings.TrimSpace(parts[1])
	}
	return m, nil
}

// Split separates a "|"-delimited list as used by the LLEGAPO_HEADERS
// variable, where commas may appear inside values.
func Split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
