package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayz/perplex/internal/search"
)

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "ALWAYS": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}

func TestResolveColorsForBuffer(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, ResolveColors(ColorAuto, &buf), "a buffer is not a terminal")
	assert.True(t, ResolveColors(ColorAlways, &buf))
	assert.False(t, ResolveColors(ColorNever, &buf))
}

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ColorNever)

	p.Status("🔍 Searching the web...")
	p.Notice("⚠️ Could not download content from %s 🚫", "https://a")
	p.Answer("First line\n- bullet")
	p.Separator()

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes when colors are off")
	assert.Contains(t, out, "🔍 Searching the web...\n")
	assert.Contains(t, out, "⚠️ Could not download content from https://a 🚫\n")
	assert.Contains(t, out, "💡 AI Response")
	assert.Contains(t, out, "│ - bullet")
	assert.Contains(t, out, "-- ✨ ---- ✨ --")
}

func TestPrinterColors(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	p := NewPrinter(&buf, ColorAlways)
	p.Notice("careful")
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestResultsTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ColorNever)
	p.Results([]search.Result{
		{Title: "Go", Description: "d", URL: "https://go.dev"},
		{Title: strings.Repeat("x", 80), Description: "d", URL: "https://example.com"},
	})
	out := buf.String()
	assert.Contains(t, out, "https://go.dev")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "…")
}

func TestWrap(t *testing.T) {
	lines := wrap("alpha beta gamma delta", 11)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, lines)
	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", 10))
}
