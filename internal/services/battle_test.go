package services

import (
	"math"
	"testing"

	"sippets/internal/models"
	"sippets/internal/pkg/gacha"
)

// seqRNG replays a fixed sequence of draws.
type seqRNG struct {
	vals []float64
	i    int
}

func (r *seqRNG) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func TestWinProbabilityEqualPowers(t *testing.T) {
	p := WinProbability(1000, 1000, 0)
	if math.Abs(p-0.5) > 1e-9 {
		t.Fatalf("equal powers: got %v want 0.5", p)
	}
}

func TestWinProbabilityClamps(t *testing.T) {
	// the curve alone tops out at 0.65; only luck can reach the bounds
	if p := WinProbability(1e9, 1, 0.15); math.Abs(p-0.80) > 1e-9 {
		t.Fatalf("upper clamp: got %v want 0.80", p)
	}
	if p := WinProbability(1, 1e9, -0.15); math.Abs(p-0.20) > 1e-9 {
		t.Fatalf("lower clamp: got %v want 0.20", p)
	}
}

func TestWinProbabilityLuckShiftCapped(t *testing.T) {
	capped := WinProbability(1000, 1000, 10)
	atCap := WinProbability(1000, 1000, 0.15)
	if math.Abs(capped-atCap) > 1e-9 {
		t.Fatalf("oversized luck shift not capped: %v vs %v", capped, atCap)
	}
	if math.Abs(capped-0.65) > 1e-9 {
		t.Fatalf("got %v want 0.65", capped)
	}
}

func TestWinProbabilityMonotonic(t *testing.T) {
	prev := 0.0
	for power := int64(1); power <= 100000; power *= 10 {
		p := WinProbability(float64(power), 1000, 0)
		if p < prev {
			t.Fatalf("probability decreased at power %d: %v < %v", power, p, prev)
		}
		prev = p
	}
}

func TestWinProbabilityZeroPowers(t *testing.T) {
	// max(cp, dp, 1) guards the division
	p := WinProbability(0, 0, 0)
	if math.IsNaN(p) || math.Abs(p-0.5) > 1e-9 {
		t.Fatalf("zero powers: got %v want 0.5", p)
	}
}

func TestEffectivePower(t *testing.T) {
	effects := models.CombatEffects{PowerScaling: 0.10}
	got := EffectivePower(1000, models.TribeChad, effects)
	want := 1000 * (1 + models.TribeChad.CombatBonus() + 0.10)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBuildReplayWinnerSurvives(t *testing.T) {
	for _, winner := range []models.ReplaySide{models.ReplaySideChallenger, models.ReplaySideDefender} {
		for seed := int64(0); seed < 20; seed++ {
			frames := BuildReplay(gacha.NewLockedRand(seed), winner, 5000, 4000, models.CombatEffects{}, models.CombatEffects{})
			if len(frames) == 0 {
				t.Fatal("no frames")
			}
			if len(frames) > BATTLE_MAX_REPLAY_ROUNDS+1 {
				t.Fatalf("too many frames: %d", len(frames))
			}

			last := frames[len(frames)-1]
			if winner == models.ReplaySideChallenger {
				if last.DefenderHP != 0 || last.ChallengerHP < 1 {
					t.Fatalf("seed %d: challenger should win, last frame %+v", seed, last)
				}
			} else {
				if last.ChallengerHP != 0 || last.DefenderHP < 1 {
					t.Fatalf("seed %d: defender should win, last frame %+v", seed, last)
				}
			}
		}
	}
}

func TestBuildReplayAlternatesAttackers(t *testing.T) {
	rng := &seqRNG{vals: []float64{0.99, 0.5, 0.99}} // never dodge, never crit
	frames := BuildReplay(rng, models.ReplaySideChallenger, 100, 100, models.CombatEffects{}, models.CombatEffects{})

	for i := 1; i < len(frames)-1; i++ {
		if frames[i].Attacker == frames[i-1].Attacker {
			t.Fatalf("frames %d and %d share attacker %s", i-1, i, frames[i].Attacker)
		}
	}
}

func TestBuildReplayHPNeverNegative(t *testing.T) {
	frames := BuildReplay(gacha.NewLockedRand(7), models.ReplaySideDefender, 100000, 10, models.CombatEffects{}, models.CombatEffects{})
	for i, frame := range frames {
		if frame.ChallengerHP < 0 || frame.DefenderHP < 0 {
			t.Fatalf("frame %d has negative HP: %+v", i, frame)
		}
	}
}
