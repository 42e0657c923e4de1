package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("spectator")
	assert.True(t, ok)
	assert.Equal(t, RoleSpectator, r)

	r, ok = ParseRole("ADMIN")
	assert.False(t, ok)
	assert.Equal(t, RoleAnonymous, r)

	assert.Equal(t, "anonymous", RoleAnonymous.String())
}

func TestValidGenre(t *testing.T) {
	assert.True(t, ValidGenre(""))
	assert.True(t, ValidGenre("scifi"))
	assert.False(t, ValidGenre("western"))
}
