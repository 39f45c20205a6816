package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 160))
	assert.Equal(t, "abcde...", excerpt("abcdefgh", 5))

	// Accented text must never be cut mid-rune.
	long := strings.Repeat("é", 200)
	got := excerpt(long, 160)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 160)+"...", got)
}
