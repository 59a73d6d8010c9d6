package gacha

import "testing"

type fixedRNG struct{ v float64 }

func (r fixedRNG) Float64() float64 { return r.v }

func testChoices() []TierChoice {
	return []TierChoice{
		{Tier: 1, Weight: 60, Threshold: 0},
		{Tier: 2, Weight: 28, Threshold: 100},
		{Tier: 3, Weight: 10, Threshold: 500},
		{Tier: 4, Weight: 2, Threshold: 1000},
	}
}

func TestPickRespectsPowerGate(t *testing.T) {
	selector := NewTierSelector(testChoices())

	// draw close to 1 always lands on the last eligible tier
	tier, err := selector.Pick(fixedRNG{0.999}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if tier != 1 {
		t.Fatalf("power 0: got tier %d want 1", tier)
	}

	tier, err = selector.Pick(fixedRNG{0.999}, 500)
	if err != nil {
		t.Fatal(err)
	}
	if tier != 3 {
		t.Fatalf("power 500: got tier %d want 3", tier)
	}
}

func TestPickRenormalizesWeights(t *testing.T) {
	selector := NewTierSelector(testChoices())

	// at power 100 only tiers 1 and 2 are eligible (weights 60 and 28 of 88)
	boundary := 60.0 / 88.0

	tier, err := selector.Pick(fixedRNG{boundary - 0.001}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if tier != 1 {
		t.Fatalf("below boundary: got tier %d want 1", tier)
	}

	tier, err = selector.Pick(fixedRNG{boundary + 0.001}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if tier != 2 {
		t.Fatalf("above boundary: got tier %d want 2", tier)
	}
}

func TestPickNoEligibleTier(t *testing.T) {
	selector := NewTierSelector([]TierChoice{{Tier: 1, Weight: 10, Threshold: 100}})
	if _, err := selector.Pick(fixedRNG{0.5}, 50); err != ErrNoEligibleTier {
		t.Fatalf("got %v want ErrNoEligibleTier", err)
	}
}

func TestLockedRandInRange(t *testing.T) {
	rng := NewLockedRand(1)
	for i := 0; i < 1000; i++ {
		v := rng.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("draw out of range: %v", v)
		}
	}
}
