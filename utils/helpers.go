package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateSecureToken returns n random bytes hex-encoded.
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TruncateString shortens s to at most maxRunes runes, ending in "..." when
// cut. It never splits a multi-byte character.
func TruncateString(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	const ellipsis = "..."
	if maxRunes <= len(ellipsis) {
		return string([]rune(s)[:maxRunes])
	}
	return string([]rune(s)[:maxRunes-len(ellipsis)]) + ellipsis
}

// SplitAndTrim splits a comma separated list and drops blanks.
func SplitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func FormatDuration(duration time.Duration) string {
	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	}
	return fmt.Sprintf("%dh %dm", int(duration.Hours()), int(duration.Minutes())%60)
}
