package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░   0%", ProgressBar(0, 0, 5))
	assert.Equal(t, "█████ 100%", ProgressBar(3, 3, 5))
	assert.Equal(t, "█████░░░░░  50%", ProgressBar(1, 2, 10))
	// width is clamped to 5
	assert.Equal(t, 5, strings.Count(ProgressBar(1, 1, 1), "█"))
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("classic")

	SetTheme("mono")
	assert.Equal(t, "mono", Current().Name)
	assert.Equal(t, "[x]", Current().BoxChecked)

	SetTheme("NEON")
	assert.Equal(t, "neon", Current().Name)

	SetTheme("whatever")
	assert.Equal(t, "classic", Current().Name)
}

func TestOutputHelpers(t *testing.T) {
	defer SetTheme("classic")
	SetTheme("mono")

	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "nope")
	Panel(&buf, []string{"hello", "world"})

	out := buf.String()
	assert.Contains(t, out, "x added")
	assert.Contains(t, out, "✖ nope")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "+--") // normal border corner
}
