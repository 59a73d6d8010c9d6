package ledger

import "testing"

func TestBurnFloors(t *testing.T) {
	cases := []struct {
		amount, rateBps, want int64
	}{
		{2000, 1000, 200},
		{199, 1000, 19}, // floor, not round
		{0, 1000, 0},
		{2000, 0, 0},
	}

	for _, tc := range cases {
		got, err := Burn(tc.amount, tc.rateBps)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("Burn(%d, %d): got %d want %d", tc.amount, tc.rateBps, got, tc.want)
		}
	}
}

func TestBurnNegative(t *testing.T) {
	if _, err := Burn(-1, 1000); err != ErrNegativeInput {
		t.Fatalf("got %v want ErrNegativeInput", err)
	}
	if _, err := Burn(100, -1); err != ErrNegativeInput {
		t.Fatalf("got %v want ErrNegativeInput", err)
	}
}

func TestPotConservation(t *testing.T) {
	// settlement computes prize as pot - burned; the two must always rebuild
	// the pot exactly
	for _, pot := range []int64{1, 2, 199, 200, 12345, 1 << 40} {
		burned, err := Burn(pot, 1000)
		if err != nil {
			t.Fatal(err)
		}
		prize := pot - burned
		if prize+burned != pot {
			t.Fatalf("pot %d: prize %d + burned %d != pot", pot, prize, burned)
		}
		if prize < 0 || burned < 0 {
			t.Fatalf("pot %d: negative side", pot)
		}
	}
}

func TestWithinTolerance(t *testing.T) {
	cases := []struct {
		declared, verified, toleranceBps int64
		want                             bool
	}{
		{10000, 10000, 100, true},
		{10000, 9900, 100, true},  // exactly -1%
		{10000, 10100, 100, true}, // exactly +1%
		{10000, 9899, 100, false},
		{10000, 10101, 100, false},
		{10000, 10000, 0, true},
		{0, 0, 100, false}, // declared must be positive
		{10000, -1, 100, false},
	}

	for _, tc := range cases {
		if got := WithinTolerance(tc.declared, tc.verified, tc.toleranceBps); got != tc.want {
			t.Fatalf("WithinTolerance(%d, %d, %d): got %v want %v", tc.declared, tc.verified, tc.toleranceBps, got, tc.want)
		}
	}
}

func TestNeglectPenaltyCompounds(t *testing.T) {
	// 10% lost per day on 1000: day one leaves 900, day two 810
	penalty, err := NeglectPenalty(1000, 2, 9000)
	if err != nil {
		t.Fatal(err)
	}
	if penalty != 190 {
		t.Fatalf("got %d want 190", penalty)
	}

	penalty, err = NeglectPenalty(1000, 0, 9000)
	if err != nil {
		t.Fatal(err)
	}
	if penalty != 0 {
		t.Fatalf("zero days: got %d want 0", penalty)
	}
}
