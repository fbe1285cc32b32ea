package format

// sparklineChars maps values 0..7 to Unicode block elements.
var sparklineChars = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps (col 0-1, row 0-3) to the braille dot bit offsets.
var brailleDots = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// Downsample reduces values to at most width points by averaging equal-sized
// buckets. Shorter inputs are returned unchanged.
func Downsample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := range width {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// RenderSparkline converts values (0..100) into a sparkline string using Unicode blocks.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	runes := make([]rune, len(values))
	for i, v := range values {
		idx := int(clampPercent(v) / 100.0 * 7.0)
		runes[i] = sparklineChars[min(idx, 7)]
	}
	return string(runes)
}

// RenderBrailleChart renders values (0..100) as a braille dot chart of
// rows text lines and width characters. Values are right-aligned, most
// recent on the right.
func RenderBrailleChart(values []float64, width, rows int) []string {
	if width <= 0 || rows <= 0 || len(values) == 0 {
		return nil
	}

	dotRows := rows * 4
	dotCols := width * 2

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = make([]rune, width)
		for c := range grid[r] {
			grid[r][c] = 0x2800
		}
	}

	startIdx := 0
	if len(values) > dotCols {
		startIdx = len(values) - dotCols
	}
	offset := dotCols - min(len(values), dotCols)

	for i := startIdx; i < len(values); i++ {
		dotCol := (i - startIdx) + offset
		dotRow := dotRows - 1 - int(clampPercent(values[i])/100.0*float64(dotRows-1))
		dotRow = max(0, min(dotRow, dotRows-1))
		grid[dotRow/4][dotCol/2] |= brailleDots[dotCol%2][dotRow%4]
	}

	result := make([]string, rows)
	for r := range grid {
		result[r] = string(grid[r])
	}
	return result
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
