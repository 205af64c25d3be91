package guardrail

// DriftDetector is an opaque capability interface for drift rules (tone
// shift, repetition entropy): the exact numeric coefficients are left as
// tunables outside this module's concern, so DriftRule only defines the
// wiring, not the heuristic itself. A caller supplies a concrete
// DriftDetector (their own tone-shift or entropy model); this package
// ships only a trivial repetition-ratio implementation as a reference
// instance.
type DriftDetector interface {
	// Score returns a drift score in [0,1] for content given the
	// session's prior baseline (e.g. earlier checkpoints' content);
	// 0 means no drift detected.
	Score(content string, baseline string) float64
}

// DriftRule wires a DriftDetector into the pipeline. A violation fires
// when Score exceeds Threshold; severity/recoverable are caller-supplied
// since the heuristic and its tuning are entirely up to the capability.
type DriftRule struct {
	RuleName    string
	Detector    DriftDetector
	Baseline    string
	Threshold   float64
	Severity    Severity
	Recoverable bool
}

func (r DriftRule) Name() string { return r.RuleName }

func (r DriftRule) Check(ctx Context) []Violation {
	score := r.Detector.Score(ctx.Content, r.Baseline)
	if score <= r.Threshold {
		return nil
	}
	return []Violation{{
		Rule: r.RuleName, Severity: r.Severity, Recoverable: r.Recoverable,
		Message: "drift score exceeded threshold",
	}}
}

// RepetitionDriftDetector is a minimal reference DriftDetector measuring
// immediate-repetition entropy: the fraction of adjacent-word repeats in
// content, ignoring baseline. It exists so the pipeline has something
// concrete to exercise in tests; production callers are expected to
// supply their own detector.
type RepetitionDriftDetector struct{}

func (RepetitionDriftDetector) Score(content string, _ string) float64 {
	words := splitWords(content)
	if len(words) < 2 {
		return 0
	}
	repeats := 0
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			repeats++
		}
	}
	return float64(repeats) / float64(len(words)-1)
}

func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
