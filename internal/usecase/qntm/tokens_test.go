package qntm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, estimateTokens(""))

	// Exact counts depend on whether the encoding loaded; either path
	// must yield a positive estimate for real text.
	n := estimateTokens("generate semantic keys for this chunk of text")
	assert.Greater(t, n, 0)

	longer := estimateTokens("generate semantic keys for this chunk of text, repeated with more words to extend it")
	assert.Greater(t, longer, n)
}
