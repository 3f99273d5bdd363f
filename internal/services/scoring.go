package services

import (
	"errors"
	"math"
	"sort"

	"github.com/tbourn/go-case-router/internal/domain"
)

const (
	// RatingScale is the upper bound of review ratings.
	RatingScale = 5.0
	// DefaultRating is used for lawyers without reviews (0.3 quality term
	// with default weights).
	DefaultRating = 3.0

	// scoreQuantum is the grid scores are rounded to before comparison.
	scoreQuantum = 1e-9
)

// ScoreWeights balances quality (rating) against availability (inverse
// load) in Score.
type ScoreWeights struct {
	Rating float64 `json:"rating"`
	Load   float64 `json:"load"`
}

// DefaultScoreWeights returns the equal 0.5/0.5 weighting.
func DefaultScoreWeights() ScoreWeights { return ScoreWeights{Rating: 0.5, Load: 0.5} }

// Validate requires finite, non-negative weights that are not both zero.
func (w ScoreWeights) Validate() error {
	for _, v := range []float64{w.Rating, w.Load} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.New("score weights must be finite and >= 0")
		}
	}
	if w.Rating+w.Load == 0 {
		return errors.New("score weights must not both be zero")
	}
	return nil
}

// ScoredLawyer is an eligible lawyer with its ranking score.
type ScoredLawyer struct {
	domain.LawyerCandidate
	Rating float64 `json:"rating"`
	Score  float64 `json:"score"`
}

// EffectiveRating returns the lawyer's average rating clamped to
// [0, RatingScale], or DefaultRating with no reviews.
func EffectiveRating(c domain.LawyerCandidate) float64 {
	if c.AvgRating == nil || math.IsNaN(*c.AvgRating) {
		return DefaultRating
	}
	return math.Max(0, math.Min(RatingScale, *c.AvgRating))
}

// Score computes w.Rating*(rating/5) + w.Load*(1 - active/max). The value
// only ranks lawyers against each other.
func Score(c domain.LawyerCandidate, w ScoreWeights) float64 {
	quality := EffectiveRating(c) / RatingScale
	availability := 0.0
	if c.MaxConcurrentCases > 0 {
		availability = 1 - float64(c.ActiveCases)/float64(c.MaxConcurrentCases)
	}
	return w.Rating*quality + w.Load*availability
}

// Rank scores candidates and orders them best first. Scores are compared
// after rounding to scoreQuantum; equal rounded scores are broken by fewer
// active cases, then by lowest lawyer id, so the order does not depend on
// the order candidates arrive in.
func Rank(cands []domain.LawyerCandidate, w ScoreWeights) []ScoredLawyer {
	out := make([]ScoredLawyer, len(cands))
	for i, c := range cands {
		out[i] = ScoredLawyer{LawyerCandidate: c, Rating: EffectiveRating(c), Score: Score(c, w)}
	}
	sort.Slice(out, func(i, j int) bool { return rankedBefore(out[i], out[j]) })
	return out
}

func rankedBefore(a, b ScoredLawyer) bool {
	if ka, kb := scoreKey(a.Score), scoreKey(b.Score); ka != kb {
		return ka > kb
	}
	if a.ActiveCases != b.ActiveCases {
		return a.ActiveCases < b.ActiveCases
	}
	return a.ID < b.ID
}

func scoreKey(s float64) float64 { return math.Round(s / scoreQuantum) }
