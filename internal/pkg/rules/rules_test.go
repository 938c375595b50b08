package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() map[string]interface{} {
	return map[string]interface{}{
		"commits": float64(150),
		"prs":     float64(12),
		"issues":  float64(3),
		"stars":   float64(40),
		"score":   321.5,
	}
}

func TestProgress_BooleanSatisfied(t *testing.T) {
	progress, err := Progress("commits >= 100", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 100, progress)
}

func TestProgress_BooleanUnsatisfied(t *testing.T) {
	progress, err := Progress("stars >= 1000", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 0, progress)
}

func TestProgress_CompoundCondition(t *testing.T) {
	progress, err := Progress("commits >= 100 && prs >= 10", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 100, progress)

	progress, err = Progress("commits >= 100 && stars >= 1000", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 0, progress)
}

func TestProgress_NumericClamped(t *testing.T) {
	progress, err := Progress("commits / 2", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 75, progress)

	progress, err = Progress("commits * 10", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 100, progress)

	progress, err = Progress("prs - 100", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 0, progress)
}

func TestProgress_InvalidExpression(t *testing.T) {
	_, err := Progress("commits >=", snapshot())
	assert.Error(t, err)
}

func TestProgress_UnknownField(t *testing.T) {
	_, err := Progress("followers >= 10", snapshot())
	assert.Error(t, err)
}

func TestProgress_NonScalarResult(t *testing.T) {
	_, err := Progress("'achieved'", snapshot())
	assert.Error(t, err)
}
