// Package visuals decides how many images each segment gets and how the
// segment's screen time is split between them.
package visuals

import (
	"github.com/reelforge/reelforge/internal/types"
)

const (
	// DefaultIdealImageDuration is the target on-screen time per image.
	DefaultIdealImageDuration = 3.0
	// DefaultMinImageDuration is the shortest acceptable trailing image.
	DefaultMinImageDuration = 2.0
)

// ImagesForSegment splits a segment's duration into full-length images
// plus one trailing image. Every image except the last shows for ideal
// seconds; the returned lastDuration is the trailing image's time. A
// leftover shorter than min is folded into the previous image instead of
// producing a flash-cut.
func ImagesForSegment(duration, ideal, min float64) (count int, lastDuration float64) {
	if ideal <= 0 {
		ideal = DefaultIdealImageDuration
	}
	if min <= 0 {
		min = DefaultMinImageDuration
	}
	if duration <= ideal {
		return 1, duration
	}
	full := int(duration / ideal)
	excess := duration - float64(full)*ideal
	if excess > min {
		return full + 1, excess
	}
	return full, ideal + excess
}

// Plan builds one visual plan per segment timing. With single image per
// segment each plan holds exactly one image spanning the whole segment.
func Plan(timings []types.SegmentTiming, cfg types.RunConfig) []types.SegmentVisualPlan {
	plans := make([]types.SegmentVisualPlan, len(timings))
	for i, tm := range timings {
		if cfg.SingleImagePerSegment {
			plans[i] = types.SegmentVisualPlan{
				SegmentIndex:      i,
				NumImages:         1,
				LastImageDuration: tm.Duration,
			}
			continue
		}
		count, last := ImagesForSegment(tm.Duration, cfg.IdealImageDuration, cfg.MinImageDuration)
		plans[i] = types.SegmentVisualPlan{
			SegmentIndex:      i,
			NumImages:         count,
			LastImageDuration: last,
		}
	}
	return plans
}

// ImageDurations expands a plan into the display time of each image in
// order. The durations sum to the segment duration the plan was built
// from.
func ImageDurations(plan types.SegmentVisualPlan, ideal float64) []float64 {
	if ideal <= 0 {
		ideal = DefaultIdealImageDuration
	}
	out := make([]float64, plan.NumImages)
	for i := range out {
		out[i] = ideal
	}
	if len(out) > 0 {
		out[len(out)-1] = plan.LastImageDuration
	}
	return out
}
