package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldUseColorRespectsNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColor())
}

func TestGetStylesPlainWhenDisabled(t *testing.T) {
	styles := GetStyles(true)
	assert.Equal(t, "styled?", styles.Header.Render("styled?"))
	assert.Equal(t, "styled?", styles.Error.Render("styled?"))
}
