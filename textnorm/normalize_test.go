package textnorm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultRules(t *testing.T) {
	n := Default()
	cases := []struct {
		name, in, want string
	}{
		{"control and symbols", "سلام\u0007 عليكم $", "سلام عليكم "},
		{"format chars", "ab\u200dcd\u200f", "abcd"},
		{"emoji", "مرحبا 😀 بك", "مرحبا  بك"},
		{"keycap", "رقم 1\ufe0f\u20e3 هنا", "رقم  هنا"},
		{"ornate parens", "﴾الحمد﴿", "(الحمد)"},
		{"leading diacritic", "\u064eكتب", "كتب"},
		{"leading diacritics run", "\u064b\u0650\u0674كتب", "كتب"},
		{"inner diacritic kept", "كَتب", "كَتب"},
		{"isolated hamza", "كتب ء قلم", "كتب  قلم"},
		{"hamza at edges", "ء كتب ٴ", " كتب "},
		{"adjacent isolated hamzas", "ء ء ء", "  "},
		{"hamza inside word kept", "سماء جزء", "سماء جزء"},
		{"latin untouched", "ab cd", "ab cd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := n.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

var idempotenceInputs = []string{
	"",
	"ab cd",
	"\u064bء ًب",
	"ً\u0621",
	"ء ء ءء ء",
	"سلام\u0007 عليكم $ 😀",
	"\ufe0f\u064eب",
	"1\ufe0f\u20e3 ٴ",
	"﴾ ء ﴿",
	"قال: \"مرحبا\" -- hello, world... !!!!",
	"'كلمة' و “أخرى” ؛ ⇒ نص\tآخر",
	"  ، ۔  ",
	strings.Repeat("\u064e ", 12) + " كتب",
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, preset := range []string{PresetDefault, PresetCorpus} {
		rules, err := Preset(preset)
		if err != nil {
			t.Fatalf("Preset(%s) error: %v", preset, err)
		}
		n, err := New(rules)
		if err != nil {
			t.Fatalf("New(%s) error: %v", preset, err)
		}
		for _, in := range idempotenceInputs {
			once := n.Normalize(in)
			if twice := n.Normalize(once); twice != once {
				t.Fatalf("%s: Normalize not idempotent for %q: %q -> %q", preset, in, once, twice)
			}
		}
	}
}

func TestCorpusRules(t *testing.T) {
	rules, err := Preset(PresetCorpus)
	if err != nil {
		t.Fatal(err)
	}
	n, err := New(rules)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct{ in, want string }{
		{"كتب, قرأ.", "كتب، قرأ۔"},
		{"قال \"مرحبا\" لي", "قال «مرحبا» لي"},
		{"نص hello عربي", "نص عربي"},
		{"نص-آخر", "نص آخر"},
		{"نص ؟؟؟؟؟ آخر", "نص آخر"},
		{" ، ۔ ", ""},
		{strings.Repeat("\u064e ", 12) + " كتب", "كتب"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRuleValidation(t *testing.T) {
	bad := [][]Rule{
		{{Name: "empty"}},
		{{Name: "two kinds", Pattern: "a", Form: "NFC"}},
		{{Name: "bad regexp", Pattern: "(?<=a)b"}},
		{{Name: "bad category", Categories: []string{"Q"}}},
		{{Name: "bad form", Form: "NFX"}},
	}
	for _, rules := range bad {
		if _, err := New(rules); err == nil {
			t.Fatalf("expected error for rule %+v", rules[0])
		}
	}
}

func TestFormRule(t *testing.T) {
	n, err := New([]Rule{{Name: "nfkc", Form: "nfkc"}})
	if err != nil {
		t.Fatal(err)
	}
	// U+FEFB 为 لا 的连字表现形式，NFKC 展开为 ل + ا。
	if got := n.Normalize("\ufefb"); got != "\u0644\u0627" {
		t.Fatalf("NFKC = %q", got)
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := strings.Join([]string{
		"preset: default",
		"rules:",
		"  - name: yeh",
		"    pattern: \"\\u064A\"",
		"    replace: \"\\u06CC\"",
		"  - name: nfc",
		"    form: NFC",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules error: %v", err)
	}
	var names []string
	for _, r := range rules {
		names = append(names, r.Name)
	}
	want := []string{
		"strip-control-symbol", "strip-emoji-residue", "ornate-parens-open",
		"ornate-parens-close", "leading-diacritic", "isolated-hamza", "yeh", "nfc",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("rule names mismatch (-want +got):\n%s", diff)
	}
	n, err := New(rules)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Normalize("علي"); got != "علی" {
		t.Fatalf("custom rule not applied: %q", got)
	}
}

func TestRenderAndContinuo(t *testing.T) {
	if got := RenderText("سلام"); got != "\u200fسلام" {
		t.Fatalf("RenderText = %q", got)
	}
	if got := RenderText(RenderText("x")); got != "\u200fx" {
		t.Fatalf("RenderText not idempotent: %q", got)
	}
	if got := Continuo("ab  cd\tef "); got != "ab\u200dcd\u200def" {
		t.Fatalf("Continuo = %q", got)
	}
}
