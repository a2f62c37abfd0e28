package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParse feeds arbitrary path and body values through every parser. A
// parser either returns an ID that round-trips through String or an error,
// and all kinds agree on which inputs are acceptable.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"550e8400e29b41d4a716446655440000",
		"resolve",
		string([]byte{0xff, 0xfe}),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseComplaintID(input)
		if err == nil {
			if id.IsNil() {
				t.Fatalf("accepted nil id from %q", input)
			}
			again, err := ParseComplaintID(id.String())
			if err != nil || again != id {
				t.Fatalf("round trip of %q failed: %v", input, err)
			}
		}
		if err == nil && !utf8.ValidString(input) {
			t.Fatalf("accepted invalid UTF-8 %q", input)
		}

		for kind, parse := range parsers {
			if (parse(input) == nil) != (err == nil) {
				t.Fatalf("%s parser disagrees on %q", kind, input)
			}
		}
	})
}
