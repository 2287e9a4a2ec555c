package main

import "testing"

func TestCleanOCRText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Aibatt", "Aibatt"},
		{"  Small   Lawolf ", "Small Lawolf"},
		{"Mia's Pet", "Mia's Pet"},
		{"Giant-Bang Lv.32", "Giant-Bang Lv.32"},
		{"Clockworks|]!", "Clockworks"},
		{"\x00\x1f~*#", ""},
		{"", ""},
		{"123 456", "123 456"},
	}
	for _, c := range cases {
		if got := cleanOCRText(c.in); got != c.want {
			t.Errorf("cleanOCRText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Aibatt", "aibatt"},
		{" Small Lawolf ", "small lawolf"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
