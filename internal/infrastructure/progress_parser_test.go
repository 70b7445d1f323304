package infrastructure

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name     string
		chunk    string
		expected domain.ProgressState
		ok       bool
	}{
		{
			name:     "with percentage",
			chunk:    " 50%    1MB  512kB/s ",
			expected: domain.ProgressState{BytesTotal: 2 << 20, BytesDownloaded: 1 << 20, BytesPerSecond: 512 << 10},
			ok:       true,
		},
		{
			name:     "without total",
			chunk:    "   100kB  10kB/s ",
			expected: domain.ProgressState{BytesDownloaded: 100 << 10, BytesPerSecond: 10 << 10},
			ok:       true,
		},
		{
			name:     "plain bytes",
			chunk:    "  25%     512B   256B/s",
			expected: domain.ProgressState{BytesTotal: 2048, BytesDownloaded: 512, BytesPerSecond: 256},
			ok:       true,
		},
		{
			name:     "fractional size",
			chunk:    " 10%  1.5GB  3.0MB/s",
			expected: domain.ProgressState{BytesTotal: 15 * (1 << 30), BytesDownloaded: 3 * (1 << 29), BytesPerSecond: 3 << 20},
			ok:       true,
		},
		{
			name:     "zero percent keeps total unknown",
			chunk:    "  0%    0B    0B/s",
			expected: domain.ProgressState{},
			ok:       true,
		},
		{
			name:  "warning line",
			chunk: "[danbooru][warning] HTTP request failed",
			ok:    false,
		},
		{
			name:  "empty",
			chunk: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgress(tt.chunk)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestParseOutputLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
		ok       bool
	}{
		{name: "completed redraw", line: "  /dl/a.jpg\r✔ /dl/a.jpg", expected: "/dl/a.jpg", ok: true},
		{name: "success prefix", line: "✔ /dl/a.jpg", expected: "/dl/a.jpg", ok: true},
		{name: "skipped", line: "# /dl/b.jpg", expected: "/dl/b.jpg", ok: true},
		{name: "in progress only", line: "  /dl/c.jpg", expected: "/dl/c.jpg", ok: true},
		{name: "path with spaces", line: "✔ /dl/my file.png  ", expected: "/dl/my file.png", ok: true},
		{name: "blank", line: "   ", ok: false},
		{name: "empty redraw", line: "  /dl/a.jpg\r", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseOutputLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestScanCRLF(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(" 10% 1kB 1kB/s\r 20% 2kB 1kB/s\rwarning\nlast"))
	scanner.Split(scanCRLF)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{" 10% 1kB 1kB/s", " 20% 2kB 1kB/s", "warning", "last"}, tokens)
}
