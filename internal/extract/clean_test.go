package extract

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"collapse spaces", "a  \t b", "a b"},
		{"trim lines", "  a  \n  b  ", "a\nb"},
		{"blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"nbsp", "a\u00a0b", "a b"},
		{"zero width", "a\u200bb\ufeff", "ab"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"whitespace only", " \n \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	got := ComputeStats("Héllo world\n\nSecond paragraph here\nstill second")
	if got.Words != 7 {
		t.Errorf("words = %d, want 7", got.Words)
	}
	if got.Paragraphs != 2 {
		t.Errorf("paragraphs = %d, want 2", got.Paragraphs)
	}
	if got.Characters != 47 {
		t.Errorf("characters = %d, want 47", got.Characters)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("short text changed: %q", got)
	}
	if got := Preview("x", 0); got != "x" {
		t.Errorf("maxChars 0 should return text unchanged: %q", got)
	}
	if got := Preview("ééééé", 3); got != "ééé..." {
		t.Errorf("rune-safe cut: got %q", got)
	}
	if got := Preview("one two three four", 9); got != "one two..." {
		t.Errorf("word boundary cut: got %q", got)
	}
}
