package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in    string
		limit int
		want  string
	}{
		"non-positive limit": {in: "Friendly beagle", limit: 0, want: ""},
		"fits":               {in: "Rex", limit: 10, want: "Rex"},
		"cut":                {in: "Friendly beagle", limit: 8, want: "Friendly..."},
		"runes not bytes":    {in: "Привет, собака", limit: 6, want: "Привет..."},
		"flattens lines":     {in: "  Loves kids.\n\nHouse trained.\t", limit: 40, want: "Loves kids. House trained."},
		"cut after flatten":  {in: "a\n\n\nb c", limit: 3, want: "a b..."},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tc.in, tc.limit); got != tc.want {
				t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}
