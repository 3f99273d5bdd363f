package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, size               int
		wantP, wantSize, wantOff int
	}{
		{1, 20, 1, 20, 0},
		{3, 10, 3, 10, 20},
		{0, 0, 1, DefaultPageSize, 0},
		{-4, -1, 1, 1, 0},
		{2, 1000, 2, MaxPageSize, MaxPageSize},
	}
	for _, tc := range cases {
		p, size, off := ClampPage(tc.page, tc.size)
		if p != tc.wantP || size != tc.wantSize || off != tc.wantOff {
			t.Fatalf("ClampPage(%d,%d) = (%d,%d,%d); want (%d,%d,%d)",
				tc.page, tc.size, p, size, off, tc.wantP, tc.wantSize, tc.wantOff)
		}
	}
}

func TestParsePage(t *testing.T) {
	if p, s := ParsePage("", ""); p != 1 || s != DefaultPageSize {
		t.Fatalf("defaults: %d %d", p, s)
	}
	if p, s := ParsePage("x", "500"); p != 1 || s != MaxPageSize {
		t.Fatalf("invalid/capped: %d %d", p, s)
	}
	if p, s := ParsePage("2", "0"); p != 2 || s != DefaultPageSize {
		t.Fatalf("zero size: %d %d", p, s)
	}
}
