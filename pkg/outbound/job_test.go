package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsDeterministic(t *testing.T) {
	job := Job{To: "+5511999999999", MessageType: MessageTypeText, Text: "olá", IdempotencyKey: "m1"}
	h1, err := Hash(job)
	require.NoError(t, err)
	h2, err := Hash(job)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHash_DiffersByField(t *testing.T) {
	base := Job{To: "+5511999999999", MessageType: MessageTypeText, Text: "olá", IdempotencyKey: "m1"}
	changed := base
	changed.Text = "oi"

	h1, err := Hash(base)
	require.NoError(t, err)
	h2, err := Hash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
