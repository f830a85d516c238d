package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("Alpha"))
	require.NoError(t, ValidateName("  padded  "))
	require.ErrorIs(t, ValidateName(""), ErrNameRequired)
	require.ErrorIs(t, ValidateName("   "), ErrNameRequired)
	require.NoError(t, ValidateName(strings.Repeat("é", MaxNameLength)))
	require.ErrorIs(t, ValidateName(strings.Repeat("a", MaxNameLength+1)), ErrNameTooLong)
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@example.com", "first.last+tag@sub.example.org"}
	for _, email := range valid {
		require.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{"", "plain", "@example.com", "Name <a@example.com>", "a@", strings.Repeat("a", 250) + "@x.io"}
	for _, email := range invalid {
		require.ErrorIs(t, ValidateEmail(email), ErrInvalidEmail, email)
	}

	require.Equal(t, "a@example.com", NormalizeEmail("  A@Example.COM "))
}

func TestNormalizeCurrency(t *testing.T) {
	for in, want := range map[string]string{"PHP": "PHP", "usd": "USD", " eur ": "EUR"} {
		got, err := NormalizeCurrency(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	for _, in := range []string{"", "US", "DOLLAR", "ZZZ", "12A"} {
		_, err := NormalizeCurrency(in)
		require.ErrorIs(t, err, ErrInvalidCurrency, in)
	}
}
