package webhookmsg

import (
	"strconv"
	"strings"
)

// normalizePhone coerces a vendor "from" number into E.164 with a leading "+".
// The Meta API sends digits only (no "+"); this is idempotent if one is
// already present.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	return "+" + raw
}

// parseUnixSeconds parses the vendor's string-encoded UNIX timestamp,
// returning 0 on any parse failure (the caller treats 0 as "unknown").
func parseUnixSeconds(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
