package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAssignment reads "id=value". value is anything strconv.ParseBool accepts, or on/off.
// A bare "id" means true.
func ParseAssignment(s string) (string, bool, error) {
	id, raw, found := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false, fmt.Errorf("invalid assignment %q: missing node id", s)
	}
	if !found {
		return id, true, nil
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on":
		return id, true, nil
	case "off":
		return id, false, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return "", false, fmt.Errorf("invalid assignment %q: %w", s, err)
	}
	return id, v, nil
}
