package prediction

import (
	"fmt"
	"math"
	"sort"

	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/models"
)

// Output bounds of a decision
const (
	MinProbability = 55.0
	MaxProbability = 95.0
	MinConfidence  = 60.0
	MaxConfidence  = 90.0
	MaxJitter      = 5.0
)

// Decision is the ensemble's verdict for one window
type Decision struct {
	Direction   models.Direction
	Score       float64
	Probability float64
	Confidence  float64
	Modifier    float64
}

// Combine returns the weighted sum of the factor scores
func Combine(scores models.FactorScores, w models.ModelWeights) float64 {
	s := scores.Values()
	v := w.Values()

	var total float64
	for i := range s {
		total += s[i] * v[i]
	}
	return calculate.Clamp(total, 0, 100)
}

// ConfidenceModifier scales the probability by market conditions. It starts at
// 1 and adds 0.2 for a strong trend (ADX > 60), up to 0.3 for the strongest
// pattern's confidence and 0.15 for an extreme RSI, capped at 1.5.
func ConfidenceModifier(snap models.IndicatorSnapshot, strongestPattern float64) float64 {
	modifier := 1.0
	if snap.ADX > 60 {
		modifier += 0.2
	}
	modifier += calculate.Clamp(strongestPattern, 0, 100) / 100 * 0.3
	if snap.RSI < 20 || snap.RSI > 80 {
		modifier += 0.15
	}
	return calculate.Clamp(modifier, 1.0, 1.5)
}

// Jitter is a deterministic reduction in [0, MaxJitter) taken from the score
func Jitter(score float64) float64 {
	j := math.Mod(math.Abs(score)*100, MaxJitter)
	if math.IsNaN(j) {
		return 0
	}
	return j
}

// Decide turns factor scores and weights into a direction, probability and
// confidence. A score of exactly 50 resolves to Down.
func Decide(scores models.FactorScores, w models.ModelWeights, snap models.IndicatorSnapshot, strongestPattern float64) Decision {
	score := Combine(scores, w)

	direction := models.DirectionDown
	if score > 50 {
		direction = models.DirectionUp
	}

	modifier := ConfidenceModifier(snap, strongestPattern)
	probability := calculate.Clamp(math.Abs(score-50)*2*modifier, MinProbability, MaxProbability)
	confidence := calculate.Clamp(probability-Jitter(score), MinConfidence, MaxConfidence)

	// the confidence floor sits above the probability floor
	if confidence > probability {
		probability = confidence
	}

	return Decision{
		Direction:   direction,
		Score:       score,
		Probability: probability,
		Confidence:  confidence,
		Modifier:    modifier,
	}
}

// Recommendation describes a decision for display
func Recommendation(direction models.Direction, confidence float64) string {
	switch {
	case confidence >= 80:
		return fmt.Sprintf("Strong %s signal, high confidence entry", direction)
	case confidence >= 70:
		return fmt.Sprintf("Moderate %s signal, reduced position size advised", direction)
	default:
		return fmt.Sprintf("Weak %s signal, consider waiting for confirmation", direction)
	}
}

// Contributions returns each factor's weight * (score - 50), ordered by
// absolute contribution, largest first
func Contributions(scores models.FactorScores, w models.ModelWeights) []models.FactorContribution {
	s := scores.Values()
	v := w.Values()

	out := make([]models.FactorContribution, len(models.Factors))
	for i, f := range models.Factors {
		out[i] = models.FactorContribution{
			Factor:       f,
			Score:        s[i],
			Weight:       v[i],
			Contribution: v[i] * (s[i] - 50),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Contribution) > math.Abs(out[j].Contribution)
	})
	return out
}
