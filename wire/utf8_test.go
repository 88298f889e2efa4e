package wire

import "testing"

type utf8Case struct {
	desc    string
	in      []byte
	wantErr error
}

func requireErr(t *testing.T, fn string, got, want error) {
	t.Helper()
	if got != want {
		t.Errorf("%s() error = %v, want %v", fn, got, want)
	}
}

// nonStrictCases covers strings that ValidateUTF8String must accept or
// reject without regard to the strict-mode control-character rule.
var nonStrictCases = []utf8Case{
	{"plain ASCII", []byte("Hello, World!"), nil},
	{"multi-byte mixed scripts", []byte("Hello мир 世界 مرحبا"), nil},
	{"empty", []byte(""), nil},
	{"NUL at start", []byte("\x00Hello"), ErrNullCharacter},
	{"NUL in middle", []byte("Hello\x00World"), ErrNullCharacter},
	{"NUL at end", []byte("Hello\x00"), ErrNullCharacter},
	{"only NUL", []byte("\x00"), ErrNullCharacter},
	{"not valid UTF-8 at all", []byte{0xFF, 0xFE, 0xFD}, ErrInvalidUTF8},
	{"lone continuation byte", []byte{0x80}, ErrInvalidUTF8},
	{"truncated multi-byte sequence", []byte{0xE0, 0x80}, ErrInvalidUTF8},
	{"overlong encoding of NUL", []byte{0xC0, 0x80}, ErrInvalidUTF8},
	{"encoded surrogate low", []byte{0xED, 0xA0, 0x80}, ErrInvalidUTF8},
	{"encoded surrogate high", []byte{0xED, 0xBF, 0xBF}, ErrInvalidUTF8},
	{"non-character U+FFFE", []byte{0xEF, 0xBF, 0xBE}, ErrNonCharacterCodePoint},
	{"non-character U+FFFF", []byte{0xEF, 0xBF, 0xBF}, ErrNonCharacterCodePoint},
	{"non-character U+1FFFE", []byte{0xF0, 0x9F, 0xBF, 0xBE}, ErrNonCharacterCodePoint},
	{"non-character U+1FFFF", []byte{0xF0, 0x9F, 0xBF, 0xBF}, ErrNonCharacterCodePoint},
	{"non-character U+FDD0", []byte{0xEF, 0xB7, 0x90}, ErrNonCharacterCodePoint},
	{"non-character U+FDEF", []byte{0xEF, 0xB7, 0xAF}, ErrNonCharacterCodePoint},
	{"tab", []byte("Hello\tWorld"), nil},
	{"newline", []byte("Hello\nWorld"), nil},
	{"carriage return", []byte("Hello\rWorld"), nil},
	{"C0 control U+0001 tolerated", []byte{0x01}, nil},
	{"C0 control U+001F tolerated", []byte{0x1F}, nil},
	{"plain space", []byte(" "), nil},
	{"max 2-byte form U+07FF", []byte{0xDF, 0xBF}, nil},
	{"max 3-byte form U+FFFD", []byte{0xEF, 0xBF, 0xBD}, nil},
	{"max 4-byte form U+10FFFF", []byte{0xF4, 0x8F, 0xBF, 0xBF}, nil},
	{"past U+10FFFF", []byte{0xF4, 0x90, 0x80, 0x80}, ErrInvalidUTF8},
}

func TestValidateUTF8String(t *testing.T) {
	for _, c := range nonStrictCases {
		t.Run(c.desc, func(t *testing.T) {
			requireErr(t, "ValidateUTF8String", ValidateUTF8String(c.in), c.wantErr)
		})
	}
}

func TestIsValidUTF8String(t *testing.T) {
	for _, c := range nonStrictCases {
		t.Run(c.desc, func(t *testing.T) {
			want := c.wantErr == nil
			if got := IsValidUTF8String(c.in); got != want {
				t.Errorf("IsValidUTF8String(%q) = %v, want %v", c.in, got, want)
			}
		})
	}
}

// strictCases covers the additional control-character rule that only the
// *Strict validators enforce; everything nonStrictCases already settled
// (NUL, surrogates, non-characters) is not repeated here.
var strictCases = []utf8Case{
	{"plain ASCII", []byte("Hello, World!"), nil},
	{"tab tolerated", []byte("Hello\tWorld"), nil},
	{"newline tolerated", []byte("Hello\nWorld"), nil},
	{"carriage return tolerated", []byte("Hello\rWorld"), nil},
	{"C0 control U+0001", []byte{0x01}, ErrControlCharacter},
	{"C0 control U+001F", []byte{0x1F}, ErrControlCharacter},
	{"DEL U+007F", []byte{0x7F}, ErrControlCharacter},
	{"C1 control U+0080", []byte{0xC2, 0x80}, ErrControlCharacter},
	{"C1 control U+009F", []byte{0xC2, 0x9F}, ErrControlCharacter},
	{"U+00A0 not a control", []byte{0xC2, 0xA0}, nil},
	{"NUL still rejected", []byte("\x00"), ErrNullCharacter},
	{"non-character still rejected", []byte{0xEF, 0xBF, 0xBE}, ErrNonCharacterCodePoint},
	{"control char after valid text", []byte("Hello\x01World"), ErrControlCharacter},
}

func TestValidateUTF8StringStrict(t *testing.T) {
	for _, c := range strictCases {
		t.Run(c.desc, func(t *testing.T) {
			requireErr(t, "ValidateUTF8StringStrict", ValidateUTF8StringStrict(c.in), c.wantErr)
		})
	}
}

func TestIsValidUTF8StringStrict(t *testing.T) {
	for _, c := range strictCases {
		t.Run(c.desc, func(t *testing.T) {
			want := c.wantErr == nil
			if got := IsValidUTF8StringStrict(c.in); got != want {
				t.Errorf("IsValidUTF8StringStrict(%q) = %v, want %v", c.in, got, want)
			}
		})
	}
}

func TestRuneVerdict(t *testing.T) {
	cases := []struct {
		desc    string
		r       rune
		wantErr error
	}{
		{"ASCII letter", 'A', nil},
		{"BMP symbol", '§', nil},
		{"NUL", 0x0000, ErrNullCharacter},
		{"surrogate range start", 0xD800, ErrSurrogateCodePoint},
		{"surrogate range end", 0xDFFF, ErrSurrogateCodePoint},
		{"surrogate range middle", 0xDC00, ErrSurrogateCodePoint},
		{"non-character U+FFFE", 0xFFFE, ErrNonCharacterCodePoint},
		{"non-character U+FFFF", 0xFFFF, ErrNonCharacterCodePoint},
		{"non-character U+1FFFE", 0x1FFFE, ErrNonCharacterCodePoint},
		{"non-character U+1FFFF", 0x1FFFF, ErrNonCharacterCodePoint},
		{"non-character U+FDD0", 0xFDD0, ErrNonCharacterCodePoint},
		{"non-character U+FDEF", 0xFDEF, ErrNonCharacterCodePoint},
		{"just past the non-character block", 0xFDF0, nil},
		{"just before the non-character block", 0xFDCF, nil},
		{"tab", '\t', nil},
		{"newline", '\n', nil},
		{"space", ' ', nil},
		{"maximum code point is not a non-character", 0x10FFFF, nil},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			requireErr(t, "runeVerdict", runeVerdict(c.r), c.wantErr)
		})
	}
}

func BenchmarkValidateUTF8String(b *testing.B) {
	samples := map[string][]byte{
		"short ASCII": []byte("Hello, World!"),
		"long ASCII":  []byte("The quick brown fox jumps over the lazy dog. The quick brown fox jumps over the lazy dog."),
		"emoji":       []byte("Hello 🌍 World 🚀 Testing 💻 Validation ✅"),
		"mixed scripts": []byte(
			"Hello мир 世界 مرحبا بالعالم Γειά σου"),
	}

	for name, data := range samples {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ValidateUTF8String(data)
			}
		})
	}
}

func BenchmarkValidateUTF8StringStrict(b *testing.B) {
	data := []byte("Hello, World! This is a test string for benchmarking.")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ValidateUTF8StringStrict(data)
	}
}

func BenchmarkIsValidUTF8String(b *testing.B) {
	data := []byte("Hello, World! This is a test string for benchmarking.")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = IsValidUTF8String(data)
	}
}
