package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSplitPart(t *testing.T) {
	part, err := GetSplitPart("https://example.com/a/b/c", "/", 4)
	assert.NoError(t, err)
	assert.Equal(t, "b", part)

	_, err = GetSplitPart("a/b", "/", 5)
	assert.Error(t, err)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("г. Минск, Октябрьский район", "минск"))
	assert.True(t, ContainsFold("Минск", "г. Минск, Октябрьский район"))
	assert.True(t, ContainsFold("Baranovichi", "baranovichi"))
	assert.False(t, ContainsFold("Минск", "Гомель"))
	assert.False(t, ContainsFold("", "Минск"))
}
