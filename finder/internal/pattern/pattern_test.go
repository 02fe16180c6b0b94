package pattern

import (
	"errors"
	"testing"
)

func TestWildcard(t *testing.T) {
	m, err := Compile("fo*ar", Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tests := []struct {
		text string
		want bool
	}{
		{"foobar", true},
		{"foar", true},
		{"foxbank", false},
	}
	for _, tt := range tests {
		if got := m.MatchString(tt.text); got != tt.want {
			t.Errorf("fo*ar on %q: got %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestWholeWords(t *testing.T) {
	tests := []struct {
		term string
		opts Options
		text string
		want int
	}{
		{"cat", Options{}, "a cat sat", 1},
		{"cat", Options{}, "category", 0},
		{"cat", Options{}, "cat cat,cat", 3},
		{"été", Options{}, "un été chaud", 1},
		{"caf", Options{}, "un café noir", 0},
		{"ete", Options{IgnoreDiacritics: true}, "un été chaud", 1},
		{"naïve", Options{}, "naïveté", 0},
		{"fo*ar", Options{}, "foobar foobarbaz", 1},
		{`\d+`, Options{UseRawPattern: true}, "7 a8 9_ 10", 2},
	}
	for _, tt := range tests {
		tt.opts.WholeWords = true
		m, err := Compile(tt.term, tt.opts)
		if err != nil {
			t.Fatalf("compile %q: %v", tt.term, err)
		}
		if got := m.Count(tt.text); got != tt.want {
			t.Errorf("%q in %q: got %d, want %d", tt.term, tt.text, got, tt.want)
		}
	}
}

func TestWholeWordSpan(t *testing.T) {
	m, err := Compile("été", Options{WholeWords: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	text := "un été chaud"
	got := m.FindAll(text)
	if len(got) != 1 {
		t.Fatalf("matches: got %d, want 1", len(got))
	}
	if s := text[got[0].Start:got[0].End]; s != "été" {
		t.Errorf("span: got %q, want %q", s, "été")
	}
}

func TestCaseSensitivity(t *testing.T) {
	insensitive, _ := Compile("Go", Options{})
	if got := insensitive.Count("go GO Go"); got != 3 {
		t.Errorf("insensitive: got %d, want 3", got)
	}
	sensitive, _ := Compile("Go", Options{CaseSensitive: true})
	if got := sensitive.Count("go GO Go"); got != 1 {
		t.Errorf("sensitive: got %d, want 1", got)
	}
}

func TestLiteralEscaping(t *testing.T) {
	m, err := Compile("a.b(c)", Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m.MatchString("axb(c)") {
		t.Error("dot must be literal")
	}
	if !m.MatchString("see a.b(c) here") {
		t.Error("want literal match")
	}
}

func TestRawPattern(t *testing.T) {
	m, err := Compile(`\d{3}-\d{4}`, Options{UseRawPattern: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := m.FindAll("call 555-1234 or 555-9876")
	if len(got) != 2 {
		t.Fatalf("matches: got %d, want 2", len(got))
	}
	if got[0] != (Match{Start: 5, End: 13}) {
		t.Errorf("first match: got %+v", got[0])
	}
}

func TestRawPatternSkipsEmptyMatches(t *testing.T) {
	m, err := Compile(`x*`, Options{UseRawPattern: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := m.Count("abxxc"); got != 1 {
		t.Errorf("count: got %d, want 1", got)
	}
}

func TestInvalidPattern(t *testing.T) {
	_, err := Compile(`(unclosed`, Options{UseRawPattern: true})
	var ipe *InvalidPatternError
	if !errors.As(err, &ipe) {
		t.Fatalf("raw: want InvalidPatternError, got %v", err)
	}

	_, err = Compile("", Options{})
	if !errors.As(err, &ipe) || !errors.Is(err, ErrEmptyTerm) {
		t.Fatalf("empty: want InvalidPatternError wrapping ErrEmptyTerm, got %v", err)
	}
}

func TestIgnoreDiacritics(t *testing.T) {
	m, err := Compile("cafe", Options{IgnoreDiacritics: true})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	text := "un café noir"
	got := m.FindAll(text)
	if len(got) != 1 {
		t.Fatalf("matches: got %d, want 1", len(got))
	}
	if s := text[got[0].Start:got[0].End]; s != "café" {
		t.Errorf("mapped text: got %q, want %q", s, "café")
	}

	accented, _ := Compile("café", Options{IgnoreDiacritics: true})
	if !accented.MatchString("CAFE") {
		t.Error("folded term should match unaccented text")
	}

	plain, _ := Compile("cafe", Options{})
	if plain.MatchString(text) {
		t.Error("without folding, cafe must not match café")
	}
}

func TestFoldOffsets(t *testing.T) {
	folded, offsets := Fold("ñu")
	if folded != "nu" {
		t.Fatalf("fold: got %q, want %q", folded, "nu")
	}
	if len(offsets) != len(folded)+1 {
		t.Fatalf("offsets: got %d, want %d", len(offsets), len(folded)+1)
	}
	if offsets[1] != 2 || offsets[2] != 3 {
		t.Errorf("offsets: got %v, want [0 2 3]", offsets)
	}
}
