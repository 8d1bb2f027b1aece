package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserID(t *testing.T) {
	for _, ok := range []string{"alice", "user-42", "a.b_c@example.com", "0"} {
		assert.NoError(t, ValidateUserID(ok), ok)
	}
	for _, bad := range []string{"", "   ", "bad user", "-leading", "x/../y", strings.Repeat("a", 129)} {
		err := ValidateUserID(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrValidation), bad)
	}
}

func TestValidator_CollectsAllFailures(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("id", "nope", UUID).
		Field("ok", "fine", Required, MaxLength(10))

	assert.True(t, v.HasErrors())
	assert.Equal(t, 1, strings.Count(v.ErrorMessage(), "; "))
	assert.Contains(t, v.ErrorMessage(), "'name'")
	assert.Contains(t, v.ErrorMessage(), "must be a valid UUID")
}

func TestConfigError(t *testing.T) {
	err := ConfigErrorf("bad %s", "value")
	assert.True(t, IsConfigError(err))
	assert.Equal(t, "CONFIG_ERROR: bad value: configuration error", err.Error())
	assert.True(t, IsConfigError(WrapError(err, "load")))
	assert.Nil(t, WrapError(nil, "load"))
}
