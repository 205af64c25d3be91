package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/adapter/mockadapter"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/producer/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshRegistry() *adapter.Registry {
	r := adapter.NewRegistry()
	_ = r.Register(mockadapter.New())
	return r
}

func textGenOpts(tokens ...string) orchestrator.Options {
	return orchestrator.Options{
		Stream:   mock.Factory(mock.Script{Tokens: tokens}),
		Registry: freshRegistry(),
	}
}

func TestRun_MajorityStrategyPicksMostSimilarOutput(t *testing.T) {
	opts := Options{
		Generations: []orchestrator.Options{
			textGenOpts("The", " sky", " is", " blue"),
			textGenOpts("The", " sky", " is", " blue"),
			textGenOpts("Bananas", " are", " yellow"),
		},
		Strategy: StrategyMajority,
	}

	result := Run(context.Background(), opts)
	require.NoError(t, result.Err)
	assert.Equal(t, "The sky is blue", result.Resolved.Text)
	assert.True(t, result.Confidence > 0)
}

func TestRun_BestStrategyPicksHighestWeight(t *testing.T) {
	opts := Options{
		Generations: []orchestrator.Options{
			textGenOpts("first"),
			textGenOpts("second"),
		},
		Weights:  []float64{0.2, 0.9},
		Strategy: StrategyBest,
	}

	result := Run(context.Background(), opts)
	require.NoError(t, result.Err)
	assert.Equal(t, "second", result.Resolved.Text)
}

func TestRun_AllStreamsFailedWhenEveryGenerationErrors(t *testing.T) {
	failScript := mock.Script{Tokens: []string{"x"}, FinalErr: kernelerr.New(kernelerr.ServerError, "boom")}
	failing := orchestrator.Options{
		Stream:   mock.Factory(failScript),
		Registry: freshRegistry(),
		Retry:    orchestrator.RetryPolicy{Attempts: 1},
	}

	opts := Options{Generations: []orchestrator.Options{failing, failing}}
	result := Run(context.Background(), opts)
	require.Error(t, result.Err)
}

func TestRun_RequiresAtLeastTwoGenerations(t *testing.T) {
	opts := Options{Generations: []orchestrator.Options{textGenOpts("solo")}}
	result := Run(context.Background(), opts)
	require.Error(t, result.Err)
}

func TestRun_UnanimousFallsBackToMergeOnLowSimilarity(t *testing.T) {
	opts := Options{
		Generations: []orchestrator.Options{
			textGenOpts("apples"),
			textGenOpts("oranges"),
		},
		Strategy: StrategyUnanimous,
		Conflict: ConflictMerge,
	}
	result := Run(context.Background(), opts)
	require.NoError(t, result.Err)
	assert.Contains(t, result.Resolved.Text, "apples")
	assert.Contains(t, result.Resolved.Text, "oranges")
}

// TestRun_TwoOfThreeAgreeYieldsModerateDisagreementAndMidConfidence pins
// the "yes","yes","no" two-vs-one split at the default 0.8 similarity
// threshold: the lone dissenting output should be reported as a minor or
// moderate disagreement (its similarity to the other outputs is low, but
// 2 of 3 generations still agree), and overall confidence should land in
// the middle of the range rather than near zero or near one.
func TestRun_TwoOfThreeAgreeYieldsModerateDisagreementAndMidConfidence(t *testing.T) {
	opts := Options{
		Generations: []orchestrator.Options{
			textGenOpts("yes"),
			textGenOpts("yes"),
			textGenOpts("no"),
		},
		Strategy: StrategyMajority,
	}

	result := Run(context.Background(), opts)
	require.NoError(t, result.Err)
	assert.Equal(t, "yes", result.Resolved.Text)

	require.Len(t, result.Disagreements, 1)
	assert.Contains(t, []string{"minor", "moderate"}, result.Disagreements[0].Kind)

	assert.True(t, result.Confidence > 0.6 && result.Confidence <= 0.9,
		"expected confidence in (0.6, 0.9], got %f", result.Confidence)
}

func TestRun_TimeoutReportsConsensusTimeout(t *testing.T) {
	slow := orchestrator.Options{
		Stream:   mock.Factory(mock.Script{Tokens: []string{"a"}, Delay: 2 * time.Second}),
		Registry: freshRegistry(),
	}

	opts := Options{
		Generations: []orchestrator.Options{slow, slow},
		Timeout:     20 * time.Millisecond,
	}
	result := Run(context.Background(), opts)
	require.Error(t, result.Err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, result.Err, &kerr)
	assert.Equal(t, kernelerr.ConsensusTimeout, kerr.Kind)
}

func TestStructuralSimilarity_ObjectsByKeyUnion(t *testing.T) {
	a := map[string]interface{}{"x": 1.0, "y": "hello"}
	b := map[string]interface{}{"x": 1.0, "y": "hello", "z": true}
	sim := structuralSimilarity(a, b)
	assert.True(t, sim > 0.5 && sim < 1.0)
}

func TestTextSimilarity_IdenticalAfterNormalizationIsOne(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("  The  Sky ", "the sky"))
}
