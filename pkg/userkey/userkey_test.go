package userkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive_IsStable(t *testing.T) {
	a := Derive("+5511999999999", "pepper-1")
	b := Derive("+5511999999999", "pepper-1")
	assert.Equal(t, a, b)
}

func TestDerive_DiffersByPhone(t *testing.T) {
	a := Derive("+5511999999999", "pepper-1")
	b := Derive("+5511888888888", "pepper-1")
	assert.NotEqual(t, a, b)
}

func TestDerive_DiffersByPepper(t *testing.T) {
	a := Derive("+5511999999999", "pepper-1")
	b := Derive("+5511999999999", "pepper-2")
	assert.NotEqual(t, a, b)
}

func TestDerive_HasNoPadding(t *testing.T) {
	k := Derive("+5511999999999", "pepper-1")
	assert.NotContains(t, k, "=")
}
