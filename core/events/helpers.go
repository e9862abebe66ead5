package events

import (
	"strings"

	"cosmossdk.io/math"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(amount math.Int) string {
	if amount.IsNil() {
		return "0"
	}
	return amount.String()
}
