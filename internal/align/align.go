// Package align maps script segments onto word-level audio timestamps.
//
// The TTS engine reports when every word is spoken but has no notion of
// segments, so each segment's text is located inside the reconstructed
// transcript and its start/end taken from the first and last matched
// word. Matching degrades through three tiers: exact substring search,
// fuzzy sliding-window search, and a proportional estimate when the text
// cannot be found at all.
package align

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/textsim"
	"github.com/reelforge/reelforge/internal/types"
)

const (
	// minSimilarity is the fuzzy-match acceptance bar.
	minSimilarity = 0.60
	// maxGapAbsorb caps how far a matched segment's end extends into the
	// silence before the next spoken word.
	maxGapAbsorb = 0.3
	// minDuration keeps degenerate matches visible downstream.
	minDuration = 0.1
)

// Aligner locates script segments inside a word-timestamped transcript.
type Aligner struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Aligner {
	return &Aligner{log: log}
}

// Segments aligns the script segments against the word timeline, in
// order. Timings are monotonic: each segment starts at or after the
// previous segment's end. Segments that are empty after trimming are
// skipped and produce no entry, so the result can be shorter than the
// input. A nil or empty word list returns an empty result.
func (a *Aligner) Segments(words []types.WordAlignment, segments []string) []types.SegmentTiming {
	if len(words) == 0 || len(segments) == 0 {
		return nil
	}

	transcript, charToWord := buildTranscript(words)
	audioEnd := words[len(words)-1].End

	timings := make([]types.SegmentTiming, 0, len(segments))
	cursor := 0
	prevEnd := 0.0
	for i, segment := range segments {
		clean := normalize(segment)
		if clean == "" {
			continue
		}
		start, end, next, method := a.locate(transcript, charToWord, words, clean, cursor, prevEnd, audioEnd)
		cursor = next

		if start < prevEnd {
			start = prevEnd
		}
		duration := end - start
		if duration < minDuration {
			duration = minDuration
		}
		end = start + duration

		timings = append(timings, types.SegmentTiming{Start: start, End: end, Duration: duration})
		prevEnd = end

		a.log.Debug().
			Int("segment", i).
			Str("method", method).
			Float64("start", start).
			Float64("end", end).
			Msg("aligned segment")
	}
	return timings
}

// locate tries exact then fuzzy then proportional placement. It returns
// the raw start/end times, the updated search cursor, and the tier used.
// Matched tiers extend end into the pause before the next spoken word,
// capped at maxGapAbsorb, so inter-segment silence belongs to the
// segment it follows.
func (a *Aligner) locate(transcript string, charToWord []int, words []types.WordAlignment, segment string, cursor int, prevEnd, audioEnd float64) (start, end float64, next int, method string) {
	if pos := strings.Index(transcript[cursor:], segment); pos >= 0 {
		at := cursor + pos
		start, end, last := spanTimes(charToWord, words, at, at+len(segment))
		return start, absorbGap(words, last, end), at + len(segment), "exact"
	}

	if at, ok := fuzzyFind(transcript, segment, cursor); ok {
		start, end, last := spanTimes(charToWord, words, at, at+len(segment))
		return start, absorbGap(words, last, end), at + len(segment), "fuzzy"
	}

	// Proportional: spread the remaining audio across the remaining
	// transcript in proportion to this segment's share of it.
	remainingAudio := audioEnd - prevEnd
	if remainingAudio < 0 {
		remainingAudio = 0
	}
	remaining := len(transcript) - cursor
	if remaining < 1 {
		remaining = 1
	}
	share := float64(len(segment)) / float64(remaining)
	if share > 1 {
		share = 1
	}
	duration := remainingAudio * share
	next = cursor + len(segment)
	if next > len(transcript) {
		next = len(transcript)
	}
	return prevEnd, prevEnd + duration, next, "proportional"
}

// fuzzyFind slides a segment-sized window through the transcript from the
// cursor and returns the best-scoring position at or above the acceptance
// bar. The stride trades precision for speed on long segments.
func fuzzyFind(transcript, segment string, cursor int) (int, bool) {
	window := len(segment)
	if cursor+window > len(transcript) {
		return 0, false
	}
	stride := window / 4
	if stride < 1 {
		stride = 1
	}
	bestPos, bestScore := 0, 0.0
	for pos := cursor; pos+window <= len(transcript); pos += stride {
		score := textsim.Ratio(transcript[pos:pos+window], segment)
		if score > bestScore {
			bestScore, bestPos = score, pos
		}
	}
	if bestScore < minSimilarity {
		return 0, false
	}
	return bestPos, true
}

// spanTimes maps a half-open character range of the transcript to the
// start of its first word and the end of its last word, also returning
// the last word's index.
func spanTimes(charToWord []int, words []types.WordAlignment, lo, hi int) (float64, float64, int) {
	if lo >= len(charToWord) {
		lo = len(charToWord) - 1
	}
	if hi-1 >= len(charToWord) {
		hi = len(charToWord)
	}
	first := charToWord[lo]
	last := charToWord[hi-1]
	return words[first].Start, words[last].End, last
}

// absorbGap extends end into the silence before the word after last,
// up to maxGapAbsorb.
func absorbGap(words []types.WordAlignment, last int, end float64) float64 {
	if last+1 >= len(words) {
		return end
	}
	gap := words[last+1].Start - end
	if gap <= 0 {
		return end
	}
	if gap > maxGapAbsorb {
		gap = maxGapAbsorb
	}
	return end + gap
}

// buildTranscript joins the aligned words with single spaces and records,
// for every character position, which word it belongs to. Separator
// spaces attach to the word before them so any range boundary resolves to
// a word.
func buildTranscript(words []types.WordAlignment) (string, []int) {
	var sb strings.Builder
	var charToWord []int
	for i, w := range words {
		word := normalize(w.Word)
		if i > 0 {
			sb.WriteByte(' ')
			charToWord = append(charToWord, i-1)
		}
		sb.WriteString(word)
		// Byte offsets, to match strings.Index positions.
		for j := 0; j < len(word); j++ {
			charToWord = append(charToWord, i)
		}
	}
	return sb.String(), charToWord
}

// normalize lowercases and collapses all whitespace runs to single
// spaces so formatting differences never defeat the exact tier.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
