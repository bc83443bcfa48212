package guard

import (
	"testing"

	"YieldOptimizer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartEnd(t *testing.T) {
	var g Guard
	require.NoError(t, g.Start())
	assert.True(t, g.InProgress)

	err := g.Start()
	assert.ErrorIs(t, err, model.ErrReentrancyDetected)
	assert.True(t, g.InProgress)

	g.End()
	assert.False(t, g.InProgress)
	assert.NoError(t, g.Start())
}

func TestEndIsUnconditional(t *testing.T) {
	var g Guard
	g.End()
	assert.False(t, g.InProgress)
}
