package models_test

import (
	"testing"

	"seyon/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCategory_Valid(t *testing.T) {
	for _, c := range models.Categories {
		assert.True(t, c.Valid(), "expected %q to be valid", c)
	}

	assert.False(t, models.Category("").Valid())
	assert.False(t, models.Category("residential").Valid(), "categories are case sensitive")
	assert.False(t, models.Category("Agricultural").Valid())
}
