// Package classify decides which operating mode applies to a query.
//
// Two interchangeable strategies:
// - Heuristic: keyword and urgency-pattern scan, always available
// - Statistical: Multinomial Naive Bayes over a labeled training corpus
//
// The statistical classifier is only consulted when a trained model exists;
// an untrained model is a configuration state, not a runtime error, and the
// detector silently falls back to the heuristic.
package classify

import "context"

// Modes a query can rank under.
const (
	ModeStandard  = "standard"
	ModeEmergency = "emergency"
)

// ClassEmergency is the training-corpus label treated as the emergency class.
const ClassEmergency = "emergency"

// Decision is the outcome of classifying one query. Derived per query and
// never stored.
type Decision struct {
	Mode       string   `json:"mode"`
	Confidence float64  `json:"confidence"`
	Triggers   []string `json:"triggers,omitempty"`
}

// Emergency reports whether the decision selects emergency mode.
func (d Decision) Emergency() bool { return d.Mode == ModeEmergency }

// Expander optionally widens emergency detection beyond literal keyword hits,
// e.g. by embedding similarity against the keyword list. Implementations must
// be non-failing: on any internal error they return no triggers.
type Expander interface {
	Expand(ctx context.Context, query string) []string
}

// Detector selects between the statistical and heuristic strategies.
// Model may be nil (untrained); Heuristic must be set.
type Detector struct {
	Heuristic *Heuristic
	Model     *Model
	Expander  Expander
}

// Classify runs the statistical classifier when a trained model is present,
// otherwise the heuristic detector. Semantic expansion triggers, if any, are
// appended afterwards and can upgrade a standard decision to emergency.
func (d *Detector) Classify(ctx context.Context, query string) Decision {
	var dec Decision
	if d.Model != nil {
		dec = d.Model.Decide(query)
	} else {
		dec = d.Heuristic.Classify(query)
	}

	if d.Expander != nil {
		if extra := d.Expander.Expand(ctx, query); len(extra) > 0 {
			dec.Triggers = append(dec.Triggers, extra...)
			if dec.Mode != ModeEmergency {
				dec.Mode = ModeEmergency
				if dec.Confidence < semanticUpgradeConfidence {
					dec.Confidence = semanticUpgradeConfidence
				}
			}
		}
	}
	return dec
}

// semanticUpgradeConfidence is the floor confidence assigned when semantic
// expansion alone flips the decision to emergency.
const semanticUpgradeConfidence = 0.6
