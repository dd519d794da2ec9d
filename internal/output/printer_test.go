package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	p := NewPrinter(PrinterOptions{ColorMode: ColorNever, Quiet: quiet, Out: &stdout, Err: &stderr})
	return p, &stdout, &stderr
}

func TestPrinter_Plain(t *testing.T) {
	p, stdout, stderr := plainPrinter(false)

	p.Info("processing %s", "a.jpg")
	p.Success("done")
	p.Warning("slow")
	p.Error("broken")
	p.Header("Variants")

	out := stdout.String()
	assert.Contains(t, out, "processing a.jpg\n")
	assert.Contains(t, out, "[OK] done\n")
	assert.Contains(t, out, "Variants\n--------\n")
	assert.Contains(t, stderr.String(), "[WARN] slow\n")
	assert.Contains(t, stderr.String(), "[ERROR] broken\n")
	assert.Equal(t, "skipped", p.OutcomeBadge("skipped"))
}

func TestPrinter_Quiet(t *testing.T) {
	p, stdout, stderr := plainPrinter(true)

	p.Info("hidden")
	p.Success("hidden")
	p.Warning("hidden")
	p.Error("shown")
	require.NoError(t, p.JSON(map[string]int{"n": 1}))

	assert.JSONEq(t, `{"n":1}`, stdout.String())
	assert.Equal(t, "[ERROR] shown\n", stderr.String())
}

func TestResolveColors(t *testing.T) {
	assert.True(t, ResolveColors(ColorAlways))
	assert.False(t, ResolveColors(ColorNever))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(ColorAuto))
}

func TestFormatError(t *testing.T) {
	p, _, stderr := plainPrinter(false)

	p.FormatError(&CLIError{
		Summary:    "cannot process image",
		Detail:     "decode failed",
		Suggestion: "check the file is a JPEG, PNG or WebP image",
		ExitCode:   ExitProcessingError,
	})
	out := stderr.String()
	assert.Contains(t, out, "[ERROR] cannot process image")
	assert.Contains(t, out, "Cause: decode failed")
	assert.Contains(t, out, "Suggestion: check the file")

	stderr.Reset()
	p.FormatError(&CLIError{Summary: "bad config"})
	assert.NotContains(t, stderr.String(), "Cause:")
	assert.Equal(t, "bad config", (&CLIError{Summary: "bad config"}).Error())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Format", "Suffix", "Width"})
	table.AddRow("webp", "sm", "320")
	table.AddRow("jpeg", "original", "2000")
	require.Equal(t, 2, table.Len())
	require.NoError(t, table.Render())

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "FORMAT")
	assert.Contains(t, out, "webp")
	assert.Contains(t, out, "2000")
}
