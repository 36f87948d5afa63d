package validation

import (
	"testing"

	"medimate-be/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUsername(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"abc", true},
		{"john_doe42", true},
		{"ab", false},
		{"john-doe", false},
		{"john doe", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUsername(tt.value))
		})
	}
}

func TestIsMobile(t *testing.T) {
	assert.True(t, IsMobile("+14155552671"))
	assert.True(t, IsMobile("14155552671"))
	assert.False(t, IsMobile("+0123"))
	assert.False(t, IsMobile("phone"))
}

func TestValidatorTags(t *testing.T) {
	type form struct {
		Username string `validate:"required,username"`
		Mobile   string `validate:"mobile"`
	}

	assert.NoError(t, Validator().Struct(form{Username: "medi_mate"}))

	err := Validator().Struct(form{Username: "no", Mobile: "abc"})
	fields := FieldErrors(err)
	assert.Equal(t, "username", fields["Username"])
	assert.Equal(t, "mobile", fields["Mobile"])
}

func TestCheck(t *testing.T) {
	type signUp struct {
		Name     string `validate:"required,min=2"`
		Email    string `validate:"required,email"`
		Username string `validate:"required,username"`
	}

	assert.NoError(t, Check(signUp{Name: "Ann", Email: "ann@example.com", Username: "ann_1"}))

	err := Check(signUp{Name: "A", Email: "ann@example.com", Username: "ann_1"})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "name", appErr.Field)
	assert.Equal(t, "name must be at least 2 characters.", appErr.Message)

	err = Check(signUp{Name: "Ann", Email: "nope", Username: "x"})
	require.ErrorAs(t, err, &appErr)
	details := appErr.Details.(map[string]string)
	assert.Equal(t, "Invalid email address.", details["email"])
	assert.Contains(t, details, "username")
}
