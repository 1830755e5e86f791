package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString_RuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))

	cut := TruncateString("日本語のテキストです", 6)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "日本語...", cut)

	assert.Equal(t, "日本", TruncateString("日本語", 2))
	assert.Equal(t, "", TruncateString("日本語", 0))
}
