package decision

import (
	"fmt"
	"math"

	"tripdesk/internal/config"
)

type Action string

const (
	ActionAccept   Action = "accept"
	ActionCounter  Action = "counter"
	ActionReject   Action = "reject"
	ActionEscalate Action = "escalate"
)

// Decision is the recommendation for a vendor offer. Price is the
// suggested counter (or the accepted offer); Confidence falls as the
// offer drifts from the target.
type Decision struct {
	Action     Action  `json:"action"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Deviation returns how far the offer sits above the target, in
// percent. Offers at or below target are zero or negative.
func Deviation(target, offer float64) float64 {
	if target <= 0 {
		return math.Inf(1)
	}
	return (offer - target) / target * 100
}

// AnalyzeOffer is the baseline policy: within 10% of target accept,
// within 20% counter at 5% above target, beyond that reject and hold
// firm at target.
func AnalyzeOffer(original, target, offer float64) Decision {
	dev := Deviation(target, offer)
	if math.IsInf(dev, 1) {
		return Decision{
			Action:     ActionEscalate,
			Price:      offer,
			Confidence: 0,
			Rationale:  "target price is not set, needs human review",
		}
	}

	switch {
	case dev <= 10:
		return Decision{
			Action:     ActionAccept,
			Price:      offer,
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer is within 10%% of target (%.1f%%)", dev),
		}
	case dev <= 20:
		return Decision{
			Action:     ActionCounter,
			Price:      round2(target * 1.05),
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer is %.1f%% above target, counter slightly above target", dev),
		}
	default:
		return Decision{
			Action:     ActionReject,
			Price:      round2(target),
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer is %.1f%% above target, hold firm at target", dev),
		}
	}
}

// Engine applies configurable bands and a negotiation-style multiplier
// on top of the baseline policy. Offers between the review and reject
// bands are escalated for human review rather than auto-handled.
type Engine struct {
	cfg config.DecisionConfig
}

func NewEngine(cfg config.DecisionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// StyleMultiplier maps the configured negotiation style to a band
// scale: conservative styles accept less deviation, aggressive more.
func (e *Engine) StyleMultiplier() float64 {
	switch e.cfg.Style {
	case "conservative":
		return 0.7
	case "aggressive":
		return 1.3
	default:
		return 1.0
	}
}

func (e *Engine) Evaluate(original, target, offer float64) Decision {
	dev := Deviation(target, offer)
	if math.IsInf(dev, 1) {
		return Decision{
			Action:     ActionEscalate,
			Price:      offer,
			Confidence: 0,
			Rationale:  "target price is not set, needs human review",
		}
	}

	mult := e.StyleMultiplier()
	acceptBand := e.cfg.AcceptBand * mult
	reviewBand := e.cfg.ReviewBand * mult
	rejectBand := e.cfg.RejectBand * mult

	switch {
	case dev <= acceptBand:
		return Decision{
			Action:     ActionAccept,
			Price:      offer,
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer within accept band (%.1f%% <= %.1f%%)", dev, acceptBand),
		}
	case dev <= reviewBand:
		return Decision{
			Action:     ActionCounter,
			Price:      round2(target * (1 + e.cfg.CounterMarkupPc/100)),
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer within counter band (%.1f%% <= %.1f%%)", dev, reviewBand),
		}
	case dev <= rejectBand:
		return Decision{
			Action:     ActionEscalate,
			Price:      round2(target),
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer needs human review (%.1f%% <= %.1f%%)", dev, rejectBand),
		}
	default:
		return Decision{
			Action:     ActionReject,
			Price:      round2(target),
			Confidence: confidence(dev),
			Rationale:  fmt.Sprintf("offer beyond reject threshold (%.1f%% > %.1f%%)", dev, rejectBand),
		}
	}
}

func confidence(dev float64) float64 {
	c := 1 - math.Abs(dev)/100
	if c < 0 {
		return 0
	}
	return round2(c)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
