package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalName normalizes a capability kind or function name at the
// declaration boundary. Names are NFC normalized so that visually
// identical declarations from different sources compare equal, and
// surrounding whitespace is rejected rather than silently trimmed.
func CanonicalName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name must be non-empty")
	}
	if strings.TrimSpace(name) != name {
		return "", fmt.Errorf("name %q must not contain leading or trailing whitespace", name)
	}
	return norm.NFC.String(name), nil
}

// CanonicalPayload normalizes a payload type name the same way kind names
// are normalized. Payload compatibility is decided by exact canonical-name
// equality plus the registry's projection table.
func CanonicalPayload(payload string) (PayloadType, error) {
	if payload == "" {
		return "", fmt.Errorf("payload type must be non-empty")
	}
	if strings.TrimSpace(payload) != payload {
		return "", fmt.Errorf("payload type %q must not contain leading or trailing whitespace", payload)
	}
	return PayloadType(norm.NFC.String(payload)), nil
}
