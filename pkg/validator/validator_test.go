package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type input struct {
	Name     string  `json:"name" validate:"required,max=16"`
	Position float64 `json:"position" validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(input{Name: "bob", Position: 1})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(input{Position: -1})
	require.False(t, ok)
	assert.Equal(t, []ValidationError{
		{Field: "name", Code: "REQUIRED", Message: "name is required"},
		{Field: "position", Code: "GTE", Message: "position must be at least 0"},
	}, errs)

	err := v.Check(input{Name: "a name longer than sixteen"})
	assert.EqualError(t, err, "name must not exceed 16 characters")
	assert.NoError(t, v.Check(&input{Name: "bob"}))
}
