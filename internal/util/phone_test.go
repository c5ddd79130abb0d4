package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"09876543210", "+919876543210"},
		{"00919876543210", "+919876543210"},
		{"919876543210", "+919876543210"},
		{"+919876543210", "+919876543210"},
		{" +91 98765-43210 ", "+919876543210"},
		{"+14155552671", "+14155552671"},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"+919876543210", "+14155552671", "+12345678"}
	for _, s := range valid {
		if !ValidPhone(s) {
			t.Errorf("ValidPhone(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "9876543210", "+0123456789", "+91", "not-a-phone", "+91 98765"}
	for _, s := range invalid {
		if ValidPhone(s) {
			t.Errorf("ValidPhone(%q) = true, want false", s)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+919876543210", "+91******3210"},
		{"+14155552671", "+14*****2671"},
		{"+12345", "******"}, // too short, fully redacted
		{"", ""},
	}
	for _, c := range cases {
		if got := MaskPhone(c.in); got != c.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
