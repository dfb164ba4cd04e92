package subtitle

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// timestampLayout is HH:MM:SS,mmm
const timestampLayout = "%02d:%02d:%02d,%03d"

// float tolerance so that 1.005s does not render as 1.004s
const millisEpsilon = 1e-6

// FormatTimestamp renders seconds as an SRT timestamp, truncating to milliseconds
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Floor(seconds*1000 + millisEpsilon))

	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60

	return fmt.Sprintf(timestampLayout, h, m, s, ms)
}

// ParseTimestamp converts an SRT timestamp back to seconds
func ParseTimestamp(value string) (float64, error) {
	var h, m, s, ms int
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("invalid SRT timestamp %q: %w", value, err)
	}
	if m > 59 || s > 59 || ms > 999 || h < 0 || m < 0 || s < 0 || ms < 0 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", value)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}

// Render produces SRT text for the captions. The output depends only on the input.
func Render(captions models.Captions) string {
	var b strings.Builder
	for i, c := range captions {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(c.Start),
			FormatTimestamp(c.End),
			strings.TrimSpace(c.Text),
		)
	}
	return b.String()
}

// Parse reads SRT text into captions. Multi-line cue text is joined with newlines.
func Parse(content string) (models.Captions, error) {
	captions := models.Captions{}
	scanner := bufio.NewScanner(strings.NewReader(content))

	var (
		current *models.Caption
		lines   []string
		state   int // 0 index, 1 timing, 2 text
	)

	flush := func() {
		if current != nil {
			current.Text = strings.Join(lines, "\n")
			captions = append(captions, *current)
		}
		current = nil
		lines = nil
		state = 0
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "\ufeff")

		switch state {
		case 0:
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := strconv.Atoi(strings.TrimSpace(line)); err != nil {
				return nil, fmt.Errorf("line %d: expected cue number, got %q", lineNo, line)
			}
			state = 1
		case 1:
			parts := strings.Split(line, "-->")
			if len(parts) != 2 {
				return nil, fmt.Errorf("line %d: expected timing line, got %q", lineNo, line)
			}
			start, err := ParseTimestamp(parts[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			end, err := ParseTimestamp(parts[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &models.Caption{Start: start, End: end}
			state = 2
		case 2:
			if strings.TrimSpace(line) == "" {
				flush()
				continue
			}
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if state == 1 {
		return nil, fmt.Errorf("line %d: cue without timing line", lineNo)
	}
	flush()

	return captions, nil
}
