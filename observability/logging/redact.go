package logging

import (
	"log/slog"
	"slices"
	"strings"
)

// RedactedValue replaces sensitive values in log lines.
const RedactedValue = "[REDACTED]"

// Keys that are always safe to log verbatim: record envelope fields and the
// public protocol identifiers.
var allowlisted = []string{
	"address",
	"component",
	"env",
	"error",
	"incident",
	"message",
	"module",
	"reason",
	"service",
	"severity",
	"shield",
	"signer",
	"symbol",
	"timestamp",
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsAllowlisted reports whether key is logged without redaction.
func IsAllowlisted(key string) bool {
	_, found := slices.BinarySearch(allowlisted, normalizeKey(key))
	return found
}

// RedactionAllowlist returns a sorted copy of the allowlisted keys.
func RedactionAllowlist() []string {
	return slices.Clone(allowlisted)
}

// MaskField redacts value unless key is allowlisted or value is empty.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskAddress keeps the first four bytes of a hex address under a
// non-allowlisted key so related lines can still be correlated.
func MaskAddress(key, hexAddr string) slog.Attr {
	trimmed := strings.TrimSpace(hexAddr)
	if IsAllowlisted(key) || len(trimmed) <= 10 {
		return MaskField(key, trimmed)
	}
	return slog.String(key, trimmed[:10]+"…")
}
