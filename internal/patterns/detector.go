package patterns

import (
	"sort"

	"github.com/Alias1177/candlecast/models"
)

// Pattern names reported in models.PatternMatch.Name
const (
	// Single and two-candle patterns
	Doji             = "Doji"
	Hammer           = "Hammer"
	ShootingStar     = "Shooting Star"
	BullishEngulfing = "Bullish Engulfing"
	BearishEngulfing = "Bearish Engulfing"

	// Chart patterns
	AscendingTriangle       = "Ascending Triangle"
	DescendingTriangle      = "Descending Triangle"
	HeadAndShoulders        = "Head and Shoulders"
	InverseHeadAndShoulders = "Inverse Head and Shoulders"
	DoubleTop               = "Double Top"
	DoubleBottom            = "Double Bottom"
	BullFlag                = "Bull Flag"
	BearFlag                = "Bear Flag"
	Flag                    = "Flag"
	Pennant                 = "Pennant"
	RisingWedge             = "Rising Wedge"
	FallingWedge            = "Falling Wedge"
)

var reversals = map[string]bool{
	Hammer:                  true,
	ShootingStar:            true,
	BullishEngulfing:        true,
	BearishEngulfing:        true,
	HeadAndShoulders:        true,
	InverseHeadAndShoulders: true,
	DoubleTop:               true,
	DoubleBottom:            true,
	RisingWedge:             true,
	FallingWedge:            true,
}

// IsReversal reports whether the named pattern signals a reversal
func IsReversal(name string) bool {
	return reversals[name]
}

// Thresholds holds the tunable constants of every detector. Window is the
// number of trailing candles a chart detector looks at, MinWindow the fewest
// it needs before reporting anything.
type Thresholds struct {
	DojiBodyRatio       float64 // body / range below this is a doji
	ShadowBodyRatio     float64 // dominant shadow must exceed body * ratio
	OppositeShadowBody  float64 // opposite shadow must stay below body * ratio
	OppositeShadowRange float64 // ... or below range * ratio for near-doji bodies

	TriangleWindow         int
	TriangleMinWindow      int
	TriangleTouchTolerance float64 // touch distance from the extreme, fraction of price
	TriangleFlatDrift      float64 // max regression drift across the window for a flat boundary

	HSWindow         int
	HSMinWindow      int
	ShoulderSymmetry float64
	HeadProminence   float64

	DoubleWindow        int
	DoubleMinWindow     int
	DoubleTolerance     float64
	DoubleRetracement   float64
	DoubleMinSeparation int

	FlagWindow        int
	FlagMinWindow     int
	FlagMaxRange      float64 // range / average price
	FlagVolumeDecline float64

	PennantWindow      int
	PennantMinWindow   int
	PennantContraction float64

	WedgeWindow      int
	WedgeMinWindow   int
	WedgeMinSlopeGap float64 // relative difference between the two slope magnitudes
}

// DefaultThresholds returns the thresholds used by NewDetector when none are given
func DefaultThresholds() Thresholds {
	return Thresholds{
		DojiBodyRatio:       0.1,
		ShadowBodyRatio:     2.0,
		OppositeShadowBody:  0.5,
		OppositeShadowRange: 0.1,

		TriangleWindow:         20,
		TriangleMinWindow:      10,
		TriangleTouchTolerance: 0.002,
		TriangleFlatDrift:      0.002,

		HSWindow:         30,
		HSMinWindow:      15,
		ShoulderSymmetry: 0.05,
		HeadProminence:   0.02,

		DoubleWindow:        20,
		DoubleMinWindow:     8,
		DoubleTolerance:     0.03,
		DoubleRetracement:   0.015,
		DoubleMinSeparation: 3,

		FlagWindow:        10,
		FlagMinWindow:     5,
		FlagMaxRange:      0.02,
		FlagVolumeDecline: 0.2,

		PennantWindow:      12,
		PennantMinWindow:   7,
		PennantContraction: 0.3,

		WedgeWindow:      20,
		WedgeMinWindow:   8,
		WedgeMinSlopeGap: 0.05,
	}
}

// Detector finds candlestick and chart patterns in a trailing candle window.
// It holds no state besides its thresholds and is safe for concurrent use.
type Detector struct {
	th Thresholds
}

// NewDetector creates a detector. A zero Thresholds value selects the defaults.
func NewDetector(th Thresholds) *Detector {
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Detector{th: th}
}

// Thresholds returns the detector's thresholds
func (d *Detector) Thresholds() Thresholds {
	return d.th
}

// Detect runs every detector over the window and returns all matches in a
// fixed detector order. Candlestick patterns are evaluated on the last candle
// (engulfing on the last two).
func (d *Detector) Detect(candles []models.Candle) []models.PatternMatch {
	if len(candles) == 0 {
		return nil
	}

	detectors := []func([]models.Candle) *models.PatternMatch{
		d.DetectDoji,
		d.DetectHammer,
		d.DetectShootingStar,
		d.DetectEngulfing,
		d.DetectTriangle,
		d.DetectHeadAndShoulders,
		d.DetectDouble,
		d.DetectFlag,
		d.DetectPennant,
		d.DetectWedge,
	}

	var matches []models.PatternMatch
	for _, detect := range detectors {
		if m := detect(candles); m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

// Top returns up to n matches ordered by confidence, highest first.
// The input slice is not modified.
func Top(matches []models.PatternMatch, n int) []models.PatternMatch {
	if n <= 0 || len(matches) == 0 {
		return nil
	}

	sorted := append([]models.PatternMatch(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Strongest returns the reversal match with the highest confidence
func Strongest(matches []models.PatternMatch) (models.PatternMatch, bool) {
	var best models.PatternMatch
	found := false
	for _, m := range matches {
		if !IsReversal(m.Name) {
			continue
		}
		if !found || m.Confidence > best.Confidence {
			best = m
			found = true
		}
	}
	return best, found
}

// trailing returns the last size candles, or nil when fewer than min are available
func trailing(candles []models.Candle, size, min int) []models.Candle {
	if len(candles) < min || min <= 0 {
		return nil
	}
	if size < min {
		size = min
	}
	if len(candles) > size {
		return candles[len(candles)-size:]
	}
	return candles
}

func newMatch(name string, kind models.PatternKind, confidence float64, window []models.Candle, required int) *models.PatternMatch {
	return &models.PatternMatch{
		Name:            name,
		Kind:            kind,
		Confidence:      clamp(confidence, 0, 100),
		StartIndex:      window[0].Index,
		EndIndex:        window[len(window)-1].Index,
		RequiredCandles: required,
	}
}
