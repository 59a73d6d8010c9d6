// Package gacha selects a skill tier by weighted random draw, gated on the
// pet's power. The RNG is an injected capability so every settlement draw is
// deterministic under test.
package gacha

import "errors"

// ErrNoEligibleTier means no tier passed the power gate. Tier 1 has a zero
// threshold in the shipped catalog, so reaching this is a catalog
// misconfiguration and callers treat it as fatal.
var ErrNoEligibleTier = errors.New("gacha: no eligible tier")

type RNG interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

type TierChoice struct {
	Tier      int
	Weight    int
	Threshold int64
}

type TierSelector struct {
	choices []TierChoice
}

// NewTierSelector keeps the input order; it is the stable tie-break of the
// cumulative-weight search.
func NewTierSelector(choices []TierChoice) *TierSelector {
	out := make([]TierChoice, len(choices))
	copy(out, choices)
	return &TierSelector{choices: out}
}

// Pick filters tiers unlocked at the given power, renormalizes the remaining
// weights, draws once from rng and walks the cumulative weights: the first
// tier whose cumulative share exceeds the draw wins.
func (selector *TierSelector) Pick(rng RNG, power int64) (int, error) {
	var eligible []TierChoice
	totalWeight := 0
	for _, choice := range selector.choices {
		if power >= choice.Threshold && choice.Weight > 0 {
			eligible = append(eligible, choice)
			totalWeight += choice.Weight
		}
	}

	if len(eligible) == 0 || totalWeight <= 0 {
		return 0, ErrNoEligibleTier
	}

	draw := rng.Float64()
	cumulative := 0.0
	for _, choice := range eligible {
		cumulative += float64(choice.Weight) / float64(totalWeight)
		if draw < cumulative {
			return choice.Tier, nil
		}
	}

	// float accumulation can leave the last boundary marginally below 1
	return eligible[len(eligible)-1].Tier, nil
}
