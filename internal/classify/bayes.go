package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/sentinelsearch/sentinel/internal/textutil"
)

// Model is a trained Multinomial Naive Bayes text classifier in
// log-probability form. Immutable after Train; safe for concurrent reads.
// Retraining produces a new Model that callers swap in atomically.
type Model struct {
	classes     []string // sorted, for deterministic arg-max tie-breaks
	priors      map[string]float64
	tokenCounts map[string]map[string]int
	classTokens map[string]int // total token count per class
	docCounts   map[string]int
	vocabSize   int
}

// Prediction is the classifier output for one text.
type Prediction struct {
	Class string `json:"class"`
	// LogScores are the raw per-class log posteriors. These, and only these,
	// determine the winning class.
	LogScores map[string]float64 `json:"log_scores"`
	// Probabilities is a numerically stable softmax over the log scores,
	// suitable for display. Never used for the ranking decision itself.
	Probabilities map[string]float64 `json:"probabilities"`
}

// Train builds a model from a labeled corpus mapping class name to example
// texts. Fails fast on malformed data: no classes, a class with no examples,
// or an empty vocabulary would all produce a classifier that divides by zero.
func Train(corpus map[string][]string) (*Model, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("training corpus has no classes")
	}

	m := &Model{
		priors:      make(map[string]float64),
		tokenCounts: make(map[string]map[string]int),
		classTokens: make(map[string]int),
		docCounts:   make(map[string]int),
	}

	vocab := make(map[string]struct{})
	totalDocs := 0

	for class, examples := range corpus {
		if len(examples) == 0 {
			return nil, fmt.Errorf("training class %q has no examples", class)
		}
		m.classes = append(m.classes, class)
		m.docCounts[class] = len(examples)
		m.tokenCounts[class] = make(map[string]int)
		totalDocs += len(examples)

		for _, text := range examples {
			for _, tok := range textutil.Tokenize(text) {
				vocab[tok] = struct{}{}
				m.tokenCounts[class][tok]++
				m.classTokens[class]++
			}
		}
	}

	m.vocabSize = len(vocab)
	if m.vocabSize == 0 {
		return nil, fmt.Errorf("training corpus has an empty vocabulary")
	}

	sort.Strings(m.classes)
	for _, class := range m.classes {
		m.priors[class] = math.Log(float64(m.docCounts[class]) / float64(totalDocs))
	}
	return m, nil
}

// Classes returns the class labels in sorted order.
func (m *Model) Classes() []string {
	out := make([]string, len(m.classes))
	copy(out, m.classes)
	return out
}

// VocabSize reports the size of the learned vocabulary.
func (m *Model) VocabSize() int { return m.vocabSize }

// Predict scores the text against every class and returns the arg-max of the
// raw log posteriors, using add-one smoothing:
//
//	P(token|class) = (count(token,class) + 1) / (tokens_in_class + vocab_size)
func (m *Model) Predict(text string) Prediction {
	tokens := textutil.Tokenize(text)

	logScores := make(map[string]float64, len(m.classes))
	for _, class := range m.classes {
		score := m.priors[class]
		denom := float64(m.classTokens[class] + m.vocabSize)
		for _, tok := range tokens {
			count := float64(m.tokenCounts[class][tok] + 1)
			score += math.Log(count / denom)
		}
		logScores[class] = score
	}

	// Arg-max over raw log scores; sorted iteration keeps ties deterministic.
	best := m.classes[0]
	for _, class := range m.classes[1:] {
		if logScores[class] > logScores[best] {
			best = class
		}
	}

	// Stable softmax for display: shift by the max before exponentiating.
	maxScore := logScores[best]
	probs := make(map[string]float64, len(m.classes))
	var total float64
	for _, class := range m.classes {
		probs[class] = math.Exp(logScores[class] - maxScore)
		total += probs[class]
	}
	for class := range probs {
		probs[class] /= total
	}

	return Prediction{Class: best, LogScores: logScores, Probabilities: probs}
}

// Decide converts a prediction into a mode decision. The emergency class
// label selects emergency mode; the displayed probability of the winner
// becomes the confidence.
func (m *Model) Decide(query string) Decision {
	pred := m.Predict(query)

	mode := ModeStandard
	if pred.Class == ClassEmergency {
		mode = ModeEmergency
	}
	return Decision{
		Mode:       mode,
		Confidence: pred.Probabilities[pred.Class],
		Triggers:   []string{fmt.Sprintf("classifier:%s", pred.Class)},
	}
}
