package infrastructure

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// gallery-dl terminal progress: "\r 45%    1.2MB  345kB/s " with a known
// size, "\r    1.2MB  345kB/s " without one.
var progressRegex = regexp.MustCompile(`(?:(\d{1,3})%\s+)?([\d.]+)\s*([kMGTPE]?)B\s+([\d.]+)\s*([kMGTPE]?)B/s`)

var unitMultipliers = map[string]float64{
	"":  1,
	"k": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
	"P": 1 << 50,
	"E": 1 << 60,
}

// parseProgress converts one gallery-dl progress chunk into a progress
// snapshot. The total is derived from the percentage when present.
func parseProgress(chunk string) (domain.ProgressState, bool) {
	matches := progressRegex.FindStringSubmatch(chunk)
	if matches == nil {
		return domain.ProgressState{}, false
	}

	downloaded, ok := parseSize(matches[2], matches[3])
	if !ok {
		return domain.ProgressState{}, false
	}
	rate, ok := parseSize(matches[4], matches[5])
	if !ok {
		return domain.ProgressState{}, false
	}

	progress := domain.ProgressState{
		BytesDownloaded: int64(downloaded),
		BytesPerSecond:  rate,
	}
	if matches[1] != "" {
		percent, err := strconv.Atoi(matches[1])
		if err == nil && percent > 0 {
			progress.BytesTotal = int64(downloaded * 100 / float64(percent))
		}
	}
	return progress, true
}

func parseSize(value, unit string) (float64, bool) {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	mult, ok := unitMultipliers[unit]
	if !ok {
		return 0, false
	}
	return n * mult, true
}

// parseOutputLine extracts the file path from one stdout line of
// gallery-dl's terminal output mode. "  path\r✔ path" is a completed file,
// "# path" a skipped one.
func parseOutputLine(line string) (string, bool) {
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	line = strings.TrimRight(line, " \t")

	for _, prefix := range []string{"✔ ", "# ", "  "} {
		if strings.HasPrefix(line, prefix) {
			line = line[len(prefix):]
			break
		}
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	return line, true
}

// scanCRLF splits on either carriage returns or newlines, so every
// in-place progress redraw becomes its own token.
func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
