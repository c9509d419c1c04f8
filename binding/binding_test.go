package binding

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExpand(t *testing.T) {
	vars := Vars{
		"source":    "hadith.txt",
		"timestamp": int64(1700000000),
		"run":       map[string]any{"mode": "glyph"},
	}
	cases := []struct {
		in, want string
	}{
		{"${source}.${timestamp}.d", "hadith.txt.1700000000.d"},
		{"${ source }-${run.mode}", "hadith.txt-glyph"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		got, err := Expand(tc.in, vars)
		if err != nil {
			t.Fatalf("Expand(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Expand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExpandMissing(t *testing.T) {
	_, err := Expand("${source}.${nope}.${run.x}", Vars{"source": "a", "run": map[string]any{}})
	if err == nil {
		t.Fatalf("expected error for undefined variables")
	}
	if !strings.Contains(err.Error(), "nope, run.x") {
		t.Fatalf("error should list missing names, got %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("${source}.${timestamp}.${id}.${source}")
	if diff := cmp.Diff([]string{"source", "timestamp", "id"}, got); diff != "" {
		t.Fatalf("placeholders mismatch (-want +got):\n%s", diff)
	}
}
