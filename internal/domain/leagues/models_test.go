package leagues

import "testing"

func TestNormalizeInviteCode(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"  AbC12345 ", "AbC12345", true},
		{"abcd", "abcd", true},
		{"abc", "", false},
		{"", "", false},
		{"abc%1234", "", false},
		{"abc_1234", "", false},
		{"abc 1234", "", false},
		{"äbcd1234", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeInviteCode(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeInviteCode(%q) = %q,%v want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
