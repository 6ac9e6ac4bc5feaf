// Package subtitles writes SRT captions from word-level alignments.
// Words are grouped into short cues so captions keep pace with speech.
package subtitles

import (
	"fmt"
	"os"
	"strings"

	"github.com/reelforge/reelforge/internal/types"
)

// WordsPerCue is how many words share one caption.
const WordsPerCue = 4

// Build renders the alignments as an SRT document.
func Build(words []types.WordAlignment) string {
	var sb strings.Builder
	cue := 1
	for i := 0; i < len(words); i += WordsPerCue {
		end := i + WordsPerCue
		if end > len(words) {
			end = len(words)
		}
		group := words[i:end]

		texts := make([]string, len(group))
		for j, w := range group {
			texts[j] = w.Word
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			cue,
			timestamp(group[0].Start),
			timestamp(group[len(group)-1].End),
			strings.Join(texts, " "))
		cue++
	}
	return sb.String()
}

// Write builds the SRT and writes it to path.
func Write(words []types.WordAlignment, path string) error {
	return os.WriteFile(path, []byte(Build(words)), 0o644)
}

// timestamp formats seconds as the SRT HH:MM:SS,mmm form.
func timestamp(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	ms := int(secs*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
