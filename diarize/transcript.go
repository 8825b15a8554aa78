package diarize

import "strings"

// Blocks группирует последовательные сегменты одной роли в блоки
// для восстановления транскрипта с метками говорящих
func (e *Engine) Blocks() []TranscriptBlock {
	var blocks []TranscriptBlock
	for _, seg := range e.segments {
		if n := len(blocks); n > 0 && blocks[n-1].Role == seg.Role {
			blocks[n-1].Text += " " + seg.Text
			blocks[n-1].End = seg.Timestamp
			continue
		}
		blocks = append(blocks, TranscriptBlock{
			Role:  seg.Role,
			Text:  seg.Text,
			Start: seg.Timestamp,
			End:   seg.Timestamp,
		})
	}
	return blocks
}

// Transcript текстовый транскрипт с метками ролей, по блоку на строку
func (e *Engine) Transcript() string {
	var b strings.Builder
	for _, block := range e.Blocks() {
		b.WriteString(string(block.Role))
		b.WriteString(": ")
		b.WriteString(block.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Stats счётчики сегментов и средняя уверенность по ролям
func (e *Engine) Stats() Stats {
	stats := Stats{
		Segments:    len(e.segments),
		ByRole:      make(map[Role]RoleStats),
		LastShiftAt: e.lastShiftAt,
	}

	sums := make(map[Role]float64)
	counts := make(map[Role]int)
	for _, seg := range e.segments {
		sums[seg.Role] += seg.Confidence
		counts[seg.Role]++
	}
	for role, count := range counts {
		stats.ByRole[role] = RoleStats{
			Segments:       count,
			MeanConfidence: sums[role] / float64(count),
		}
	}
	return stats
}
