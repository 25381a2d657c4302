package phonoloop_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/vsariola/phonoloop"
)

func defaultResolver(t *testing.T) *phonoloop.Resolver {
	t.Helper()
	r, err := phonoloop.LoadResolver(phonoloop.DefaultPitchLoader())
	if err != nil {
		t.Fatalf("could not load the default pitch table: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	r := defaultResolver(t)
	var tests = []struct {
		token string
		want  phonoloop.Chord
	}{
		{"Am4", phonoloop.Chord{Root: "A", Quality: phonoloop.Minor, Octave: 4}},
		{"F2", phonoloop.Chord{Root: "F", Quality: phonoloop.Major, Octave: 2}},
		{"C#3", phonoloop.Chord{Root: "C#", Quality: phonoloop.Major, Octave: 3}},
		{"Bbm5", phonoloop.Chord{Root: "Bb", Quality: phonoloop.Minor, Octave: 5}},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.token)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.token, err)
		}
		if got != tt.want {
			t.Fatalf("Resolve(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
		if got.Token() != tt.token {
			t.Fatalf("Token() = %q, want %q", got.Token(), tt.token)
		}
		if back, err := r.Resolve(got.Token()); err != nil || back != got {
			t.Fatalf("resolving %q again gave %+v, %v", got.Token(), back, err)
		}
	}
}

func TestResolveMalformed(t *testing.T) {
	r := defaultResolver(t)
	for _, token := range []string{"", "A", "4", "Am", "X4", "H2", "m4", "Am9", "A#m"} {
		if _, err := r.Resolve(token); !errors.Is(err, phonoloop.ErrMalformedChord) {
			t.Fatalf("Resolve(%q) = %v, want ErrMalformedChord", token, err)
		}
	}
}

func TestHarmonies(t *testing.T) {
	r := defaultResolver(t)
	var tests = []struct {
		token string
		want  phonoloop.HarmonySet
	}{
		{"A4", phonoloop.HarmonySet{440, 550, 660}},
		{"Am4", phonoloop.HarmonySet{440, 513, 660}},
		{"A2", phonoloop.HarmonySet{110, 138, 165}},
		{"F4", phonoloop.HarmonySet{349, 437, 524}},
		{"Em4", phonoloop.HarmonySet{330, 385, 494}},
	}
	for _, tt := range tests {
		got, err := r.ChordHarmonies(tt.token)
		if err != nil {
			t.Fatalf("ChordHarmonies(%q): %v", tt.token, err)
		}
		if got != tt.want {
			t.Fatalf("ChordHarmonies(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestHarmoniesUnknownNote(t *testing.T) {
	r := defaultResolver(t)
	if _, err := r.Harmonies(phonoloop.Chord{Root: "H", Octave: 4}); !errors.Is(err, phonoloop.ErrUnknownNote) {
		t.Fatalf("got %v, want ErrUnknownNote", err)
	}
}

func TestCustomPitchTable(t *testing.T) {
	fsys := fstest.MapFS{
		"tiny.yml": {Data: []byte("A4: 432\nB4: 484.9\n")},
		"bad.yml":  {Data: []byte("A: 440\n")},
	}
	r, err := phonoloop.LoadResolver(phonoloop.FSPitchLoader{FS: fsys, Path: "tiny.yml"})
	if err != nil {
		t.Fatalf("LoadResolver: %v", err)
	}
	h, err := r.ChordHarmonies("A4")
	if err != nil {
		t.Fatalf("ChordHarmonies: %v", err)
	}
	if want := (phonoloop.HarmonySet{432, 540, 648}); h != want {
		t.Fatalf("got %v, want %v", h, want)
	}
	if _, err := r.Resolve("C4"); !errors.Is(err, phonoloop.ErrMalformedChord) {
		t.Fatalf("C4 is not in the table, got %v", err)
	}
	for _, path := range []string{"bad.yml", "missing.yml"} {
		if _, err := phonoloop.LoadResolver(phonoloop.FSPitchLoader{FS: fsys, Path: path}); err == nil {
			t.Fatalf("loading %v should fail", path)
		}
	}
}
