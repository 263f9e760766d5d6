package util

import "testing"

func TestMaskSecret(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sk-ant-api03-abcdef1234", "sk-a...1234"},
		{"short1", "sh...t1"},
		{"abc", "a...c"},
		{"ab", "ab"},
		{"", ""},
		{"  padded-secret-value  ", "padd...alue"},
	}
	for _, tc := range cases {
		if got := MaskSecret(tc.in); got != tc.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
