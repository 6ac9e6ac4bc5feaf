package visuals

import (
	"math"
	"testing"

	"github.com/reelforge/reelforge/internal/types"
)

func TestImagesForSegment(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		count    int
		last     float64
	}{
		{"short segment keeps one image", 2.0, 1, 2.0},
		{"exactly ideal", 3.0, 1, 3.0},
		{"leftover above min becomes extra image", 5.5, 2, 2.5},
		{"leftover below min folds into previous", 7.0, 2, 4.0},
		{"zero leftover", 6.0, 2, 3.0},
		{"long segment", 11.0, 3, 5.0},
		{"tiny segment", 0.4, 1, 0.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			count, last := ImagesForSegment(tc.duration, 3.0, 2.0)
			if count != tc.count {
				t.Fatalf("count = %d, want %d", count, tc.count)
			}
			if math.Abs(last-tc.last) > 1e-9 {
				t.Fatalf("last = %v, want %v", last, tc.last)
			}
		})
	}
}

func TestImagesForSegmentCoversDuration(t *testing.T) {
	for d := 0.5; d < 30; d += 0.7 {
		count, last := ImagesForSegment(d, 3.0, 2.0)
		total := float64(count-1)*3.0 + last
		if math.Abs(total-d) > 1e-9 {
			t.Fatalf("duration %v: %d images cover %v", d, count, total)
		}
		if count > 1 && last < 2.0 {
			t.Fatalf("duration %v: trailing image %v shorter than min", d, last)
		}
	}
}

func TestPlanSingleImagePerSegment(t *testing.T) {
	timings := []types.SegmentTiming{
		{Start: 0, End: 8, Duration: 8},
		{Start: 8, End: 9.5, Duration: 1.5},
	}
	plans := Plan(timings, types.RunConfig{SingleImagePerSegment: true})
	for i, p := range plans {
		if p.NumImages != 1 {
			t.Fatalf("plan %d has %d images, want 1", i, p.NumImages)
		}
		if math.Abs(p.LastImageDuration-timings[i].Duration) > 1e-9 {
			t.Fatalf("plan %d duration %v, want %v", i, p.LastImageDuration, timings[i].Duration)
		}
		if p.SegmentIndex != i {
			t.Fatalf("plan %d carries index %d", i, p.SegmentIndex)
		}
	}
}

func TestImageDurations(t *testing.T) {
	plan := types.SegmentVisualPlan{NumImages: 3, LastImageDuration: 2.5}
	got := ImageDurations(plan, 3.0)
	want := []float64{3.0, 3.0, 2.5}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
