package users

import (
	"strings"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestSignupParams_NormalizeAndValidate(t *testing.T) {
	p := SignupParams{Email: "  Ana@Example.COM ", Password: "correct-horse", Name: "  Ana  "}
	p.Normalize()
	require.Equal(t, "ana@example.com", p.Email)
	require.Equal(t, "Ana", p.Name)
	require.NoError(t, p.Validate())
}

func TestSignupParams_ValidateRejects(t *testing.T) {
	base := SignupParams{Email: "ana@example.com", Password: "correct-horse", Name: "Ana"}

	badEmail := base
	badEmail.Email = "not-an-email"
	require.ErrorIs(t, badEmail.Validate(), validation.ErrInvalidEmail)

	shortPassword := base
	shortPassword.Password = "short"
	require.ErrorIs(t, shortPassword.Validate(), auth.ErrPasswordTooShort)

	noName := base
	noName.Name = ""
	require.ErrorIs(t, noName.Validate(), validation.ErrNameRequired)

	longName := base
	longName.Name = strings.Repeat("n", validation.MaxNameLength+1)
	require.ErrorIs(t, longName.Validate(), validation.ErrNameTooLong)
}
