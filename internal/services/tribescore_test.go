package services

import (
	"testing"

	"sippets/internal/models"
)

func TestWeightedTotal(t *testing.T) {
	cases := []struct {
		name  string
		score models.TribeScore
		want  int64
	}{
		{"all equal", models.TribeScore{Activity: 100, Social: 100, Consistency: 100, Event: 100, Power: 100}, 100},
		{"activity only rounds half up", models.TribeScore{Activity: 10}, 3}, // 10*25/100 = 2.5
		{"zero", models.TribeScore{}, 0},
		{"mixed", models.TribeScore{Activity: 300, Social: 300, Consistency: 250, Event: 100, Power: 200}, 240},
	}

	for _, tc := range cases {
		if got := WeightedTotal(&tc.score); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestWinnerOfStrictMax(t *testing.T) {
	scores := []*models.TribeScore{
		{Tribe: models.TribeFofo, Total: 300},
		{Tribe: models.TribeCaos, Total: 250},
		{Tribe: models.TribeChad, Total: 100},
		{Tribe: models.TribeDegen, Total: 299},
	}

	winner := winnerOf(scores)
	if winner == nil || *winner != models.TribeFofo {
		t.Fatalf("got %v want fofo", winner)
	}
}

func TestWinnerOfTieIsNil(t *testing.T) {
	scores := []*models.TribeScore{
		{Tribe: models.TribeFofo, Total: 300},
		{Tribe: models.TribeCaos, Total: 300},
		{Tribe: models.TribeChad, Total: 250},
		{Tribe: models.TribeDegen, Total: 100},
	}

	if winner := winnerOf(scores); winner != nil {
		t.Fatalf("tie should have no winner, got %v", *winner)
	}
}

func TestWinnerOfAllZeroIsNil(t *testing.T) {
	scores := []*models.TribeScore{
		{Tribe: models.TribeFofo},
		{Tribe: models.TribeCaos},
	}

	if winner := winnerOf(scores); winner != nil {
		t.Fatalf("zero totals should have no winner, got %v", *winner)
	}
}

func TestWinnerOfEmpty(t *testing.T) {
	if winner := winnerOf(nil); winner != nil {
		t.Fatalf("got %v want nil", *winner)
	}
}
