package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	for _, text := range []string{"", "alice@example.com", "2025-01-02T03:04:05Z", "ünïcødé ✓", "a.b.c"} {
		t.Run(text, func(t *testing.T) {
			enc := Encode(text)
			require.NotContains(t, enc, "=")
			require.NotContains(t, enc, "+")
			require.NotContains(t, enc, "/")

			dec, err := Decode(enc)
			require.NoError(t, err)
			require.Equal(t, text, dec)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"standard alphabet", "a+b/"},
		{"padding", "YQ=="},
		{"bad length", "a"},
		{"invalid utf8", "__8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}
