package analyze

import (
	"testing"
)

func TestAnalyzeEmpty(t *testing.T) {
	got := Analyze("")
	if got != (Counts{}) {
		t.Errorf("Analyze(\"\") = %+v, want all zeros", got)
	}
}

func TestAnalyzeHeadings(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		count int
		level int // 1-based, 0 = don't check
	}{
		{"h1", "# Title", 1, 1},
		{"h6", "###### Deep", 1, 6},
		{"seven hashes", "####### TooMany", 0, 0},
		{"no space after hash", "#Title", 0, 0},
		{"underline style not counted", "Title\n=====\n", 0, 0},
		{"empty atx", "#", 1, 1},
		{"mixed", "# A\n\ntext\n\n## B\n\n### C\n", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.text)
			if got.HeadingCount != tt.count {
				t.Errorf("HeadingCount = %d, want %d", got.HeadingCount, tt.count)
			}
			if tt.level > 0 && got.HeadingLevels[tt.level-1] != 1 {
				t.Errorf("HeadingLevels[%d] = %d, want 1", tt.level-1, got.HeadingLevels[tt.level-1])
			}
		})
	}
}

func TestAnalyzeLinksAndImages(t *testing.T) {
	got := Analyze("[text](http://example.com)")
	if got.LinkCount != 1 || got.ImageCount != 0 {
		t.Errorf("link: LinkCount=%d ImageCount=%d, want 1/0", got.LinkCount, got.ImageCount)
	}
	if got.ExternalLinks != 1 || got.InternalLinks != 0 {
		t.Errorf("link: external=%d internal=%d, want 1/0", got.ExternalLinks, got.InternalLinks)
	}

	got = Analyze("![alt](http://example.com/img.png)")
	if got.ImageCount != 1 || got.LinkCount != 0 {
		t.Errorf("image: ImageCount=%d LinkCount=%d, want 1/0", got.ImageCount, got.LinkCount)
	}

	// Relative and anchor destinations are internal.
	got = Analyze("[a](docs/other.md) and [b](#section)")
	if got.LinkCount != 2 || got.InternalLinks != 2 || got.ExternalLinks != 0 {
		t.Errorf("internal: %+v", got)
	}

	// Image-in-link counts each construct once.
	got = Analyze("[![alt](http://a.example/i.png)](http://b.example)")
	if got.LinkCount != 1 || got.ImageCount != 1 {
		t.Errorf("nested: LinkCount=%d ImageCount=%d, want 1/1", got.LinkCount, got.ImageCount)
	}

	// Missing closing parenthesis is not a link.
	got = Analyze("[text](http://example.com")
	if got.LinkCount != 0 {
		t.Errorf("malformed: LinkCount=%d, want 0", got.LinkCount)
	}
}

func TestAnalyzeCodeBlocks(t *testing.T) {
	got := Analyze("```go\nfmt.Println(1)\n```\n")
	if got.CodeBlockCount != 1 || got.TaggedBlocks != 1 || got.UntaggedBlocks != 0 {
		t.Errorf("tagged fence: %+v", got)
	}

	// Unterminated fence still counts as one block.
	got = Analyze("```\nsome code")
	if got.CodeBlockCount != 1 || got.UntaggedBlocks != 1 {
		t.Errorf("unterminated fence: %+v", got)
	}

	// Tilde fences count too.
	got = Analyze("~~~\nx\n~~~\n")
	if got.CodeBlockCount != 1 {
		t.Errorf("tilde fence: CodeBlockCount=%d, want 1", got.CodeBlockCount)
	}

	// Markup inside a fence is literal text.
	got = Analyze("```\n# not a heading\n[not](http://a.link)\n```\n")
	if got.HeadingCount != 0 || got.LinkCount != 0 {
		t.Errorf("fence contents leaked: %+v", got)
	}
}

func TestAnalyzeTables(t *testing.T) {
	got := Analyze("| a | b |\n| --- | --- |\n| 1 | 2 |\n")
	if got.TableCount != 1 {
		t.Errorf("TableCount = %d, want 1", got.TableCount)
	}

	// A header row without a separator row is not a table.
	got = Analyze("| a | b |\n| 1 | 2 |\n")
	if got.TableCount != 0 {
		t.Errorf("TableCount = %d, want 0", got.TableCount)
	}
}

func TestAnalyzeLinesAndWords(t *testing.T) {
	tests := []struct {
		text  string
		lines int
		words int
	}{
		{"", 0, 0},
		{"one", 1, 1},
		{"one two  three", 1, 3},
		{"a\nb", 2, 2},
		{"a\n", 2, 1},
	}
	for _, tt := range tests {
		got := Analyze(tt.text)
		if got.LineCount != tt.lines {
			t.Errorf("Analyze(%q).LineCount = %d, want %d", tt.text, got.LineCount, tt.lines)
		}
		if got.WordCount != tt.words {
			t.Errorf("Analyze(%q).WordCount = %d, want %d", tt.text, got.WordCount, tt.words)
		}
	}
}

func TestAnalyzeTodos(t *testing.T) {
	got := Analyze("TODO: first\nsome text fixme later\nXXX\n")
	if got.TodoCount != 3 {
		t.Errorf("TodoCount = %d, want 3", got.TodoCount)
	}
}

func TestInspectTitleAndLinks(t *testing.T) {
	res := Inspect("# My Title\n\n[a](http://example.com) ![i](img/local.png)\n\n## Later\n")
	if res.Title != "My Title" {
		t.Errorf("Title = %q, want %q", res.Title, "My Title")
	}
	if len(res.Links) != 2 {
		t.Fatalf("len(Links) = %d, want 2", len(res.Links))
	}
	if !res.Links[0].External || res.Links[0].URL != "http://example.com" {
		t.Errorf("Links[0] = %+v", res.Links[0])
	}
	if !res.Links[1].Image || res.Links[1].External {
		t.Errorf("Links[1] = %+v", res.Links[1])
	}
}

func TestCountsAdd(t *testing.T) {
	a := Analyze("# A\n\n[x](http://e.com)\n")
	b := Analyze("## B\n\n```\ncode\n```\n")
	sum := Counts{}
	sum.Add(a)
	sum.Add(b)
	if sum.HeadingCount != 2 {
		t.Errorf("HeadingCount = %d, want 2", sum.HeadingCount)
	}
	if sum.HeadingLevels[0] != 1 || sum.HeadingLevels[1] != 1 {
		t.Errorf("HeadingLevels = %v", sum.HeadingLevels)
	}
	if sum.LinkCount != 1 || sum.CodeBlockCount != 1 {
		t.Errorf("sum = %+v", sum)
	}
	if sum.WordCount != a.WordCount+b.WordCount {
		t.Errorf("WordCount = %d, want %d", sum.WordCount, a.WordCount+b.WordCount)
	}
}
