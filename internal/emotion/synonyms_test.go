package emotion

import (
	"slices"
	"testing"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		feeling string
		want    []string
	}{
		{
			name:    "known feeling expands to label set",
			feeling: "depression",
			want:    []string{"sorrow", "despair", "sadness", "grief", "discouragement", "anguish", "hopelessness"},
		},
		{
			name:    "lookup is case-insensitive",
			feeling: "Anxious",
			want:    []string{"anxiety", "worry", "fear", "unease"},
		},
		{
			name:    "surrounding whitespace is trimmed",
			feeling: "  worried  ",
			want:    []string{"worry", "anxiety", "fear", "concern"},
		},
		{
			name:    "unknown feeling expands to itself",
			feeling: "melancholy",
			want:    []string{"melancholy"},
		},
		{
			name:    "unknown feeling is normalized too",
			feeling: "  Melancholy ",
			want:    []string{"melancholy"},
		},
		{
			name:    "empty input expands to nothing",
			feeling: "   ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Expand(tt.feeling)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Expand(%q) = %v, want %v", tt.feeling, got, tt.want)
			}
		})
	}
}

func TestExpandReturnsCopy(t *testing.T) {
	t.Parallel()

	first := Expand("sad")
	first[0] = "mutated"

	second := Expand("sad")
	if second[0] == "mutated" {
		t.Error("Expand() returned a shared slice, want a copy")
	}
}

func TestTerms(t *testing.T) {
	t.Parallel()

	terms := Terms()
	if len(terms) == 0 {
		t.Fatal("Terms() returned no entries")
	}
	if !slices.IsSorted(terms) {
		t.Error("Terms() not sorted")
	}
	if !slices.Contains(terms, "depression") {
		t.Error("Terms() missing expected entry \"depression\"")
	}
}
