package layout

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/raqim/dsl"
)

func buildDoc(t *testing.T, dslText string) *Document {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	out, err := Build(doc, BuildOptions{DPI: 200, Font: FontResource{Name: "Default"}, FontSizePx: 40})
	if err != nil {
		t.Fatalf("构建文档失败: %v", err)
	}
	return out
}

const styledDoc = `doc T v1 {
  meta { title: "عنوان" author: "x" }
  resources {
    font Naskh { src: "fonts/naskh.ttf" }
    style Body { font: Naskh size: 14pt line-spacing: single }
    style Quote extends Body { size: 12pt }
  }
  page A4 margin 1in 20mm {
    paragraph Body indent-right 10mm spacing 1.5 {
      "بسم الله"
      run Quote { "الرحمن الرحيم" }
      pagebreak
    }
    pagebreak
    "بلا نمط"
  }
}`

func TestBuildResolvesStylesAndGeometry(t *testing.T) {
	doc := buildDoc(t, styledDoc)

	wantGeom := Geometry{Width: 1653, Height: 2338, Margin: Margin{Top: 200, Right: 157, Bottom: 200, Left: 157}}
	if doc.Geometry == nil {
		t.Fatalf("geometry missing")
	}
	if diff := cmp.Diff(wantGeom, *doc.Geometry); diff != "" {
		t.Fatalf("geometry mismatch (-want +got):\n%s", diff)
	}
	if doc.Meta.Title != "عنوان" {
		t.Fatalf("unexpected meta %+v", doc.Meta)
	}

	kinds := []string{}
	for _, b := range doc.Blocks {
		if b.PageBreak {
			kinds = append(kinds, "break")
		} else {
			kinds = append(kinds, b.Run.Text)
		}
	}
	if diff := cmp.Diff([]string{"بسم الله", "الرحمن الرحيم", "break", "break", "بلا نمط"}, kinds); diff != "" {
		t.Fatalf("block stream mismatch (-want +got):\n%s", diff)
	}

	naskh := FontResource{Name: "Naskh", Src: "fonts/naskh.ttf"}
	body := doc.Blocks[0].Run
	if body.Font != naskh || math.Abs(body.SizePx-14.0/72*200) > 1e-9 {
		t.Fatalf("unexpected body run %+v", body)
	}
	// 段落行内 spacing 1.5 覆盖样式中的 single。
	if math.Abs(body.Spacing-body.SizePx*1.5) > 1e-9 || body.Indent.Right != 78 {
		t.Fatalf("unexpected body spacing/indent %+v", body)
	}

	quote := doc.Blocks[1].Run
	if quote.Font != naskh || math.Abs(quote.SizePx-12.0/72*200) > 1e-9 {
		t.Fatalf("unexpected quote run %+v", quote)
	}
	// run 的样式链（Quote -> Body）先于外层段落参数。
	if math.Abs(quote.Spacing-quote.SizePx) > 1e-9 || quote.Indent.Right != 78 {
		t.Fatalf("unexpected quote spacing/indent %+v", quote)
	}

	plain := doc.Blocks[4].Run
	if plain.Font.Name != "Default" || plain.SizePx != 40 || plain.Spacing != 100 {
		t.Fatalf("unexpected default run %+v", plain)
	}
}

func TestBuildLandscapeAndMarginShorthand(t *testing.T) {
	doc := buildDoc(t, `doc T v1 { page A5 landscape margin 10mm 5mm 20mm { "x" } }`)
	g := *doc.Geometry
	if g.Width != 1653 || g.Height != 1165 {
		t.Fatalf("landscape not applied: %+v", g)
	}
	want := Margin{Top: 78, Right: 39, Bottom: 157, Left: 39}
	if g.Margin != want {
		t.Fatalf("margin = %+v, want %+v", g.Margin, want)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"cycle":        `doc T v1 { resources { style A extends B { size: 1pt } style B extends A { size: 1pt } } page A4 { "x" } }`,
		"undefined":    `doc T v1 { page A4 { paragraph Nope { "x" } } }`,
		"no page":      `doc T v1 { meta { title: "x" } }`,
		"bad size":     `doc T v1 { page B9 { "x" } }`,
		"degenerate":   `doc T v1 { page A4 margin 6in { "x" } }`,
		"nested":       `doc T v1 { page A4 { paragraph { paragraph { "x" } } } }`,
		"bad spacing":  `doc T v1 { page A4 { paragraph spacing wide { "x" } } }`,
		"unknown verb": `doc T v1 { page A4 { image { "x" } } }`,
	}
	for name, src := range cases {
		doc, err := dsl.ParseString(src)
		if err != nil {
			t.Fatalf("%s: 解析 DSL 失败: %v", name, err)
		}
		if _, err := Build(doc, BuildOptions{FontSizePx: 40}); err == nil {
			t.Fatalf("%s: expected build error", name)
		}
	}
}

func TestStyleChain(t *testing.T) {
	sheet := StyleSheet{
		"Base":  {Name: "Base", Props: map[string]string{"font": "A", "size": "10pt"}},
		"Mid":   {Name: "Mid", Extends: "Base", Props: map[string]string{"size": "12pt"}},
		"Leaf":  {Name: "Leaf", Extends: "Mid"},
		"Loop1": {Name: "Loop1", Extends: "Loop2"},
		"Loop2": {Name: "Loop2", Extends: "Loop1"},
		"Orph":  {Name: "Orph", Extends: "Missing"},
	}
	chain, err := sheet.Chain("Leaf")
	if err != nil {
		t.Fatalf("Chain(Leaf) error: %v", err)
	}
	if diff := cmp.Diff([]string{"Leaf", "Mid", "Base"}, chain.Names()); diff != "" {
		t.Fatalf("chain mismatch (-want +got):\n%s", diff)
	}
	if v, ok := chain.Lookup("size"); !ok || v != "12pt" {
		t.Fatalf("size = %q, %v", v, ok)
	}
	if v, ok := chain.Lookup("font"); !ok || v != "A" {
		t.Fatalf("font = %q, %v", v, ok)
	}
	if _, ok := chain.Lookup("color"); ok {
		t.Fatalf("unexpected color")
	}
	for _, name := range []string{"Loop1", "Orph", "Nope"} {
		if _, err := sheet.Chain(name); err == nil {
			t.Fatalf("Chain(%s) should fail", name)
		}
	}
}
