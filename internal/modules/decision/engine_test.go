package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"tripdesk/internal/config"
)

func balancedEngine() *Engine {
	return NewEngine(config.DefaultPolicy().Decision)
}

func TestEvaluate_AcceptWithinBand(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 400, 420) // 5% over target
	assert.Equal(t, ActionAccept, d.Action)
	assert.InDelta(t, 420.0, d.Price, 0.001)
	assert.InDelta(t, 0.95, d.Confidence, 0.001)
}

func TestEvaluate_AcceptBoundary(t *testing.T) {
	e := balancedEngine()

	// Exactly 10% over target still accepts.
	d := e.Evaluate(500, 400, 440)
	assert.Equal(t, ActionAccept, d.Action)
}

func TestEvaluate_CounterBand(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 400, 460) // 15% over target
	assert.Equal(t, ActionCounter, d.Action)
	// Counter at 5% above target.
	assert.InDelta(t, 420.0, d.Price, 0.001)
	assert.InDelta(t, 0.85, d.Confidence, 0.001)
}

func TestEvaluate_EscalateBand(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 400, 520) // 30% over target, between review and reject
	assert.Equal(t, ActionEscalate, d.Action)
	assert.InDelta(t, 400.0, d.Price, 0.001)
}

func TestEvaluate_RejectBeyondBand(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 400, 600) // 50% over target
	assert.Equal(t, ActionReject, d.Action)
	// Hold firm at target.
	assert.InDelta(t, 400.0, d.Price, 0.001)
}

func TestEvaluate_OfferBelowTargetAccepts(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 400, 380)
	assert.Equal(t, ActionAccept, d.Action)
	assert.InDelta(t, 0.95, d.Confidence, 0.001)
}

func TestEvaluate_ZeroTargetEscalates(t *testing.T) {
	e := balancedEngine()

	d := e.Evaluate(500, 0, 450)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Zero(t, d.Confidence)
}

func TestStyleMultiplier(t *testing.T) {
	cases := map[string]float64{
		"conservative": 0.7,
		"aggressive":   1.3,
		"balanced":     1.0,
		"":             1.0,
	}
	for style, want := range cases {
		cfg := config.DefaultPolicy().Decision
		cfg.Style = style
		assert.InDelta(t, want, NewEngine(cfg).StyleMultiplier(), 1e-9, style)
	}
}

func TestEvaluate_ConservativeNarrowsAcceptBand(t *testing.T) {
	cfg := config.DefaultPolicy().Decision
	cfg.Style = "conservative"
	e := NewEngine(cfg)

	// 8% over target: balanced accepts, conservative (band 7%) counters.
	d := e.Evaluate(500, 400, 432)
	assert.Equal(t, ActionCounter, d.Action)
}

func TestEvaluate_AggressiveWidensAcceptBand(t *testing.T) {
	cfg := config.DefaultPolicy().Decision
	cfg.Style = "aggressive"
	e := NewEngine(cfg)

	// 12% over target: balanced counters, aggressive (band 13%) accepts.
	d := e.Evaluate(500, 400, 448)
	assert.Equal(t, ActionAccept, d.Action)
}

func TestAnalyzeOffer_Baseline(t *testing.T) {
	d := AnalyzeOffer(500, 400, 440)
	assert.Equal(t, ActionAccept, d.Action)

	d = AnalyzeOffer(500, 400, 470)
	assert.Equal(t, ActionCounter, d.Action)
	assert.InDelta(t, 420.0, d.Price, 0.001)

	d = AnalyzeOffer(500, 400, 500)
	assert.Equal(t, ActionReject, d.Action)
	assert.InDelta(t, 400.0, d.Price, 0.001)
}

func TestDeviation(t *testing.T) {
	assert.InDelta(t, 10.0, Deviation(400, 440), 1e-9)
	assert.InDelta(t, -5.0, Deviation(400, 380), 1e-9)
	assert.True(t, math.IsInf(Deviation(0, 100), 1))
}
