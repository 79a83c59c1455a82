package psi

import "math"

const (
	neutral = 50.0

	weightVerified    = 1.0
	weightEstablished = 0.8
	weightNew         = 0.5

	// establishedAfter is the number of distinct rated profiles after which
	// an unverified voter stops counting as new.
	establishedAfter = 5
)

// Ratings are the four 0-100 factor ratings of one vote.
type Ratings struct {
	Integrity      float64 `json:"integrity"`
	Competence     float64 `json:"competence"`
	Responsiveness float64 `json:"responsiveness"`
	Transparency   float64 `json:"transparency"`
}

// Clamp bounds every rating to 0..100; NaN becomes the neutral midpoint.
func (r Ratings) Clamp() Ratings {
	return Ratings{
		Integrity:      clamp(r.Integrity),
		Competence:     clamp(r.Competence),
		Responsiveness: clamp(r.Responsiveness),
		Transparency:   clamp(r.Transparency),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return neutral
	}
	return math.Max(0, math.Min(100, v))
}

// Weight derives a voter's contribution weight from their current trust state.
func Weight(verified bool, ratedProfiles int64) float64 {
	switch {
	case verified:
		return weightVerified
	case ratedProfiles < establishedAfter:
		return weightNew
	default:
		return weightEstablished
	}
}

// Score is the aggregated PSI of a profile.
type Score struct {
	ProfileID uint64  `json:"profile_id"`
	Score     int     `json:"score"`
	VoteCount int64   `json:"vote_count"`
	Factors   Ratings `json:"factors"`
}

// sums holds weighted sums over a profile's rows.
type sums struct {
	ProfileID      uint64
	VoteCount      int64
	TotalWeight    float64
	Integrity      float64
	Competence     float64
	Responsiveness float64
	Transparency   float64
}

func (s sums) score() Score {
	out := Score{ProfileID: s.ProfileID, VoteCount: s.VoteCount}
	if s.VoteCount == 0 {
		out.Factors = Ratings{neutral, neutral, neutral, neutral}
		return out
	}
	den := s.TotalWeight
	if den == 0 {
		den = 1
	}
	out.Factors = Ratings{
		Integrity:      s.Integrity / den,
		Competence:     s.Competence / den,
		Responsiveness: s.Responsiveness / den,
		Transparency:   s.Transparency / den,
	}
	mean := (out.Factors.Integrity + out.Factors.Competence + out.Factors.Responsiveness + out.Factors.Transparency) / 4
	out.Score = int(math.Round((mean - neutral) * 2))
	return out
}
