package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Substrings of attribute keys whose values never reach the log.
var sensitiveKeys = []string{"secret", "token", "password", "mnemonic", "authorization", "dsn", "private_key"}

// IsSensitive reports whether a value logged under key is masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, s := range sensitiveKeys {
		if strings.Contains(normalized, s) {
			return true
		}
	}
	return false
}

// MaskField returns key=value, masking the value when key is sensitive.
// Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN hides the password of a URL-style database DSN. File paths and
// other non-URL DSNs are returned unchanged.
func MaskDSN(dsn string) string {
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindString && attr.Value.String() != "" && IsSensitive(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}
	return attr
}
