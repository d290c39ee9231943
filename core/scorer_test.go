package core

import (
	"math"
	"testing"

	"github.com/itemwatch/itemwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawScores(t *testing.T) {
	responses := []schema.ResponseRecord{
		resp("q1", "s1", true),
		resp("q2", "s1", true),
		resp("q3", "s1", false),
		resp("q1", "s2", false),
		resp("q2", "s2", false),
		{ItemID: "q3", SessionID: "s2", AnsweredAt: testWindowStart}, // unscored
	}

	scores := RawScores(responses)

	assert.Equal(t, map[string]int{"s1": 2, "s2": 0}, scores)
}

func TestSessionScores(t *testing.T) {
	t.Run("standardizes across sessions", func(t *testing.T) {
		responses := []schema.ResponseRecord{
			resp("q1", "s1", true),
			resp("q2", "s1", true),
			resp("q1", "s2", false),
			resp("q2", "s2", false),
		}

		scores := SessionScores(responses)
		require.Len(t, scores, 2)

		// Raw scores 2 and 0: mean 1, sample std sqrt(2).
		std := math.Sqrt2
		assert.Equal(t, "s1", scores[0].SessionID)
		assert.Equal(t, 2, scores[0].RawScore)
		assert.InDelta(t, 1/std, scores[0].Theta, 1e-12)
		assert.Equal(t, "s2", scores[1].SessionID)
		assert.InDelta(t, -1/std, scores[1].Theta, 1e-12)
	})

	t.Run("tied sessions all get theta zero", func(t *testing.T) {
		responses := []schema.ResponseRecord{
			resp("q1", "s1", true),
			resp("q1", "s2", true),
			resp("q1", "s3", true),
		}

		for _, s := range SessionScores(responses) {
			assert.Zero(t, s.Theta)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, SessionScores(nil))
	})
}

func TestThetaMap(t *testing.T) {
	responses := []schema.ResponseRecord{
		resp("q1", "s1", true),
		resp("q1", "s2", false),
	}

	thetas := ThetaMap(responses)
	require.Len(t, thetas, 2)
	assert.InDelta(t, -thetas["s2"], thetas["s1"], 1e-12)
	assert.Positive(t, thetas["s1"])
}
