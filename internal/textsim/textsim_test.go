package textsim

import "testing"

func TestRatio(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello world", "hello world", 1.0},
		{"empty both", "", "", 1.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"one empty", "abc", "", 0.0},
		{"shared prefix", "abcd", "abxy", 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Ratio(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestRatioSymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"the quick brown fox", "the quick brown"},
		{"segment two text", "segment too text"},
		{"a", "aaaa"},
	}
	for _, p := range pairs {
		ab := Ratio(p[0], p[1])
		ba := Ratio(p[1], p[0])
		if ab < 0 || ab > 1 {
			t.Fatalf("Ratio(%q, %q) = %v out of range", p[0], p[1], ab)
		}
		if d := ab - ba; d > 1e-9 || d < -1e-9 {
			t.Fatalf("Ratio not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestRatioNearMiss(t *testing.T) {
	// A one-word substitution in a short window should still clear the
	// 0.60 bar used by the fuzzy alignment stage.
	got := Ratio("start your day with water", "start your day with watr")
	if got < 0.6 {
		t.Fatalf("near-identical windows scored %v, want >= 0.6", got)
	}
}
