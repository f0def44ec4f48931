package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", SanitizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "bob@example.com", SanitizeEmail("bob@example.com"))
	assert.Equal(t, "", SanitizeEmail("   "))
}
