package sanitize

import (
	"strings"
	"testing"
)

func BenchmarkClean(b *testing.B) {
	inputs := map[string]string{
		"prose":  strings.Repeat("MetroParcel is the most cost-efficient courier at $22.50. ", 40),
		"report": deliveryReport,
		"dense":  strings.Repeat("Fact [1] and (2) with 【3:0†source】 . ", 40),
		"links":  strings.Repeat("See https://learn.microsoft.com/azure/ai, www.example.com/x. ", 40),
		"nested": strings.Repeat("[", 200) + "1" + strings.Repeat("]", 200),
	}
	for name, in := range inputs {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Clean(in)
			}
		})
	}
}
