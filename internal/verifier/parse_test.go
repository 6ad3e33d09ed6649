package verifier

import (
	"reflect"
	"testing"
)

func TestProgressMarkers(t *testing.T) {
	cases := []struct {
		name string
		line string
		want []int
	}{
		{"bare marker", "PROGRESS:42", []int{42}},
		{"embedded marker", "frame 12 done PROGRESS:60 continuing", []int{60}},
		{"multiple markers", "PROGRESS:10 PROGRESS:20", []int{10, 20}},
		{"no marker", "loading model weights", nil},
		{"non-numeric", "PROGRESS:high", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progressMarkers(tc.line); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("progressMarkers(%q) = %v, want %v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseSimilarity(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   float64
	}{
		{"accept line", "Face accepted with similarity 91.25%", 91.25},
		{"reject line", "Face rejected, Similarity 12.5% below threshold", 12.5},
		{"absent", "no score in this output", 0},
		{"integer score", "similarity 80%", 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseSimilarity(tc.output); got != tc.want {
				t.Errorf("parseSimilarity(%q) = %v, want %v", tc.output, got, tc.want)
			}
		})
	}
}

func TestAccepted(t *testing.T) {
	if !accepted("step 4: Face accepted with similarity 88%") {
		t.Error("expected accept phrase to match")
	}
	if accepted("face accepted") {
		t.Error("phrase match is case sensitive")
	}
}
