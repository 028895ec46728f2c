package benchmark

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/sections"
)

func aiReply(n int) []byte {
	list := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, map[string]interface{}{
			"type": "faq",
			"data": map[string]interface{}{
				"title": "Questions",
				"items": `[{"q":"Is it fast?","answer":"<p>Yes <b>very</b>.</p><script>x()</script>"}]`,
			},
		})
	}
	b, _ := json.Marshal(map[string]interface{}{"sections": list})
	return b
}

func BenchmarkNormalizeJSON(b *testing.B) {
	reply := aiReply(sections.MaxSections)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = sections.NormalizeJSON(reply)
	}
}

func BenchmarkParseResponse(b *testing.B) {
	reply := "Sure! Here are your sections:\n```json\n" + string(aiReply(8)) + "\n```"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sections.ParseAIResponse(reply)
	}
}

func BenchmarkTruncateToTokens(b *testing.B) {
	text := strings.Repeat("Our product helps teams ship landing pages faster. ", 4000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ai.TruncateToTokens(text, 6000)
	}
}

func BenchmarkExtractPlainText(b *testing.B) {
	e := extract.NewExtractor()
	content := []byte(strings.Repeat("A paragraph   with\tirregular spacing.\r\n\r\n\r\n", 2000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.ExtractBytes(content, "notes.txt")
	}
}
