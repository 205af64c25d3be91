// Package consensus runs N >= 2 orchestrated generations of the same
// prompt concurrently and derives a single agreed value plus a confidence
// score, generalizing orchestrator.Run's single-session shape into a
// fan-out/reduce over independent sessions. The fan-out itself is
// internal/concurrency.Parallel, keeping the bounded, partial-failure-
// tolerant pool in one place instead of two independent implementations.
package consensus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sanix-darker/streamkernel/internal/concurrency"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
)

// Strategy selects how the final value is assembled from the set of
// generations that survived agreement checking.
type Strategy string

const (
	StrategyMajority  Strategy = "majority"
	StrategyUnanimous Strategy = "unanimous"
	StrategyWeighted  Strategy = "weighted"
	StrategyBest      Strategy = "best"
)

// ConflictResolution selects what happens when agreement is unmet, or
// (Merge only) replaces the strategy's own assembly step.
type ConflictResolution string

const (
	ConflictVote  ConflictResolution = "vote"
	ConflictMerge ConflictResolution = "merge"
	ConflictBest  ConflictResolution = "best"
	ConflictFail  ConflictResolution = "fail"
)

// Status is the per-generation outcome recorded in Output.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Output is one generation's result, keyed by its position in
// Options.Generations so resolution can be deterministic regardless of
// completion order.
type Output struct {
	Index    int
	Text     string
	Data     interface{}
	Status   Status
	Err      error
	Duration time.Duration
	Weight   float64
}

// Options configures one consensus run.
type Options struct {
	// Generations is one orchestrator.Options per independent generation;
	// every entry runs through orchestrator.Run concurrently. Len must be
	// >= 2.
	Generations []orchestrator.Options

	// Weights assigns a weight to each generation by index; a nil or
	// short entry defaults to 1.0. Required (all > 0) for StrategyWeighted.
	Weights []float64

	// Schema, when non-nil, switches similarity scoring to structured
	// mode: each successful output's Text is parsed as JSON into Data,
	// validated with Schema, and compared structurally instead of as a
	// normalized-Levenshtein string. An output that fails to parse or
	// validate is recorded as a failed generation.
	Schema SchemaCapability

	Strategy            Strategy
	Conflict            ConflictResolution
	SimilarityThreshold float64
	MinAgreementRatio   float64
	Concurrency         int
	Timeout             time.Duration
}

// SchemaCapability is the narrow validation seam behind Options.Schema: a
// schema need only know how to accept or reject a decoded value, never
// how it was produced. The structured-output pipeline uses the wider
// guardrail.SchemaCapability instead.
type SchemaCapability interface {
	Validate(value interface{}) error
}

// Result is the outcome of one consensus run.
type Result struct {
	Outputs       []Output
	Agreements    []Group
	Disagreements []Group
	Resolved      Output
	Confidence    float64
	Err           error
}

// Group is a cluster of generation indices: for an agreement, outputs
// linked by pairwise similarity at or above the threshold (transitively,
// so two members may themselves score below it); for a disagreement, a
// single successful output that joined no agreement cluster.
type Group struct {
	Indices []int
	Kind    string // "exact" | "similar" for agreements, severity for disagreements
	AvgSim  float64
}

func defaultOptions(o Options) Options {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = 0.8
	}
	if o.MinAgreementRatio == 0 {
		o.MinAgreementRatio = 0.5
	}
	if o.Strategy == "" {
		o.Strategy = StrategyMajority
	}
	if o.Conflict == "" {
		o.Conflict = ConflictVote
	}
	if o.Concurrency <= 0 {
		o.Concurrency = len(o.Generations)
	}
	return o
}

// Run executes every generation in Options.Generations concurrently,
// tolerating individual failures, and reduces the surviving outputs to a
// single resolved value and confidence score.
func Run(ctx context.Context, opts Options) Result {
	opts = defaultOptions(opts)

	if len(opts.Generations) < 2 {
		return Result{Err: kernelerr.New(kernelerr.AllStreamsFailed, "consensus requires at least 2 generations")}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	outputs, timedOut := executeGenerations(ctx, opts)
	if timedOut {
		return Result{Outputs: outputs, Err: kernelerr.New(kernelerr.ConsensusTimeout, "consensus timed out before all generations completed")}
	}

	for i := range outputs {
		if opts.Schema == nil || outputs[i].Status != StatusSuccess {
			continue
		}
		var data interface{}
		err := json.Unmarshal([]byte(outputs[i].Text), &data)
		if err == nil {
			err = opts.Schema.Validate(data)
		}
		if err != nil {
			outputs[i].Status, outputs[i].Err = StatusError, kernelerr.Wrap(kernelerr.SchemaValidation, "generation output failed schema validation", err)
			continue
		}
		outputs[i].Data = data
	}

	succeeded := 0
	for _, o := range outputs {
		if o.Status == StatusSuccess {
			succeeded++
		}
	}
	if succeeded == 0 {
		return Result{Outputs: outputs, Err: kernelerr.New(kernelerr.AllStreamsFailed, "every consensus generation failed")}
	}

	matrix := buildSimilarityMatrix(outputs, opts.Schema)
	agreements := findAgreements(outputs, matrix, opts.SimilarityThreshold)
	disagreements := findDisagreements(outputs, matrix, opts.SimilarityThreshold)

	ratio := agreementRatio(outputs, agreements)
	if ratio < opts.MinAgreementRatio && opts.Conflict == ConflictFail {
		return Result{
			Outputs:       outputs,
			Agreements:    agreements,
			Disagreements: disagreements,
			Err:           kernelerr.New(kernelerr.AllStreamsFailed, "minimum agreement ratio not met"),
		}
	}

	resolved, err := resolve(outputs, matrix, opts)
	if err != nil {
		return Result{Outputs: outputs, Agreements: agreements, Disagreements: disagreements, Err: err}
	}

	confidence := computeConfidence(outputs, matrix, agreements, disagreements, opts.Strategy)

	return Result{
		Outputs:       outputs,
		Agreements:    agreements,
		Disagreements: disagreements,
		Resolved:      resolved,
		Confidence:    confidence,
	}
}

// executeGenerations runs every generation concurrently under a bounded
// pool, collecting each into an Output keyed by its original index
// regardless of finish order. It returns timedOut=true if ctx expired
// before every generation reported in; the unfinished generations'
// cancellation errors surface as ordinary op failures rather than the
// caller having to guess at partial content.
//
// The fan-out itself is internal/concurrency.Parallel: one op per
// generation, each folding its orchestrator.Result into an Output before
// reporting back, which is exactly the "one orchestrator session per
// pool slot" case concurrency.Parallel generalizes from.
func executeGenerations(ctx context.Context, opts Options) ([]Output, bool) {
	n := len(opts.Generations)
	ops := make([]concurrency.Op, n)
	for i, genOpts := range opts.Generations {
		i, genOpts := i, genOpts
		weight := weightFor(opts.Weights, i)
		ops[i] = func(opCtx context.Context) (interface{}, error) {
			out := runOneGeneration(opCtx, i, genOpts, weight)
			return out, out.Err
		}
	}

	result := concurrency.Parallel(ctx, ops, concurrency.Options{Concurrency: opts.Concurrency})

	outputs := make([]Output, n)
	for i, r := range result.Results {
		if out, ok := r.Value.(Output); ok {
			outputs[i] = out
			continue
		}
		outputs[i] = Output{Index: i, Status: StatusError, Err: r.Err, Duration: r.Duration}
	}

	timedOut := ctx.Err() != nil && !result.AllSucceeded
	return outputs, timedOut
}

func weightFor(weights []float64, index int) float64 {
	if index < len(weights) && weights[index] > 0 {
		return weights[index]
	}
	return 1.0
}

// runOneGeneration drives a single orchestrator session to completion and
// folds its terminal Result into a consensus Output.
func runOneGeneration(ctx context.Context, index int, genOpts orchestrator.Options, weight float64) Output {
	start := time.Now()
	events, resultCh := orchestrator.Run(ctx, genOpts)
	for range events {
		// the consensus engine only needs the terminal Result; per-token
		// events are drained so the session's goroutine never blocks.
	}
	result := <-resultCh

	out := Output{Index: index, Duration: time.Since(start), Weight: weight}
	if result == nil || result.Err != nil {
		out.Status = StatusError
		if result != nil {
			out.Err = result.Err
		}
		return out
	}
	out.Status = StatusSuccess
	out.Text = result.Content
	return out
}
