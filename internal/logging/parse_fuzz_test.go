package logging

import "testing"

func FuzzParseLevel(f *testing.F) {
	for _, seed := range []string{"debug", "warn", "WARNING", " error ", "", "verbose"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		level, ok := ParseLevel(raw)
		if ok && normalizeLevel(level) != level {
			t.Fatalf("parsed level %q is not a known level", level)
		}
	})
}
