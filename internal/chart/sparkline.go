package chart

import (
	"fmt"
	"math"
	"strings"
)

// Braille blocks, 4 sub-blocks high: empty, 1/4, 1/2, 3/4, full
var blocks = []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}

const subBlocksPerLine = 4.0

// Sparkline renders values as a multi-line Braille bar chart, one column per value.
// The scale starts at zero so relative rate differences stay visible.
func Sparkline(values []float64, lines int) string {
	if len(values) == 0 || lines < 1 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	rows := make([][]rune, lines)
	for i := range rows {
		rows[i] = []rune(strings.Repeat(string(blocks[0]), len(values)))
	}

	for x, val := range values {
		total := math.Max(0, val) / maxVal * float64(lines) * subBlocksPerLine

		// Fill lines from bottom up
		for y := 0; y < lines; y++ {
			lineIdx := lines - 1 - y
			lineStart := float64(y) * subBlocksPerLine
			lineEnd := float64(y+1) * subBlocksPerLine

			if total >= lineEnd {
				rows[lineIdx][x] = blocks[len(blocks)-1]
			} else if total > lineStart {
				remainder := int(math.Round(total - lineStart))
				remainder = min(max(remainder, 0), len(blocks)-1)
				rows[lineIdx][x] = blocks[remainder]
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Max: %.3f\n", maxVal)
	for _, row := range rows {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	b.WriteString("Min: 0")
	return b.String()
}
