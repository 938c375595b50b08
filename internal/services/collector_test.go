package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedScore(t *testing.T) {
	w := scoreWeights{commit: 1, star: 2, pr: 3, issue: 1.5}

	assert.InDelta(t, 270.5, weightedScore(w, 150, 40, 12, 3), 1e-9)
	assert.Zero(t, weightedScore(w, 0, 0, 0, 0))
}
