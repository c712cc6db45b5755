package sanitize

import (
	"strings"
	"testing"
)

func FuzzClean(f *testing.F) {
	f.Add("")
	f.Add(deliveryReport)
	f.Add("X is a Y [3:3†source]. Also Z (2) and W (also known as Foo).")
	f.Add("Line one 【5:2\n†source】 continues.")
	f.Add("See https://en.wikipedia.org/wiki/Foo_(2) for details [1].")
	f.Add("https://example.com/a_(b)(4†source) tail .")
	f.Add("Odd [1[2[3]]] nesting (((1))) .")
	f.Add("\xff\xfe【\x00】 [ ] ( ) † .")
	f.Add(strings.Repeat("[1] ", 200) + ".")

	f.Fuzz(func(t *testing.T, raw string) {
		clean, links := Clean(raw)

		if again := Text(clean); again != clean {
			t.Errorf("Text not idempotent:\n in: %q\n 1x: %q\n 2x: %q", raw, clean, again)
		}
		if len(clean) > len(raw) {
			t.Errorf("cleaning grew the input: %d > %d", len(clean), len(raw))
		}
		if HasSpaceBeforePeriod(clean) {
			t.Errorf("detached terminal period survived: %q", clean)
		}
		if m := Markers(clean); len(m) > 0 {
			t.Errorf("markers survived cleaning: %q in %q", m, clean)
		}
		for _, l := range links {
			if l.Start < 0 || l.End > len(raw) || raw[l.Start:l.End] != l.Text {
				t.Errorf("link offsets do not address its text: %+v", l)
			}
			if lower := strings.ToLower(l.URL); !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
				t.Errorf("link without scheme: %q", l.URL)
			}
		}
	})
}
