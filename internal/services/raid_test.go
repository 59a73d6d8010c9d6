package services

import (
	"testing"

	"sippets/internal/models"
)

func TestSplitRewardsConservation(t *testing.T) {
	// ordered by damage desc, the order GetRaidParticipants returns
	participants := []*models.RaidParticipant{
		{UserID: 1, TotalDamage: 500},
		{UserID: 2, TotalDamage: 300, IsKillingBlow: true},
		{UserID: 3, TotalDamage: 200},
	}

	payouts, remainder, err := SplitRewards(10000, participants)
	if err != nil {
		t.Fatal(err)
	}

	// 70% by damage: 3500 / 2100 / 1400. 20% even over top 3: 666 each.
	// 10% killing blow: 1000 to user 2.
	want := map[int64]int64{1: 4166, 2: 3766, 3: 2066}
	for userID, amount := range want {
		if payouts[userID] != amount {
			t.Fatalf("user %d: got %d want %d", userID, payouts[userID], amount)
		}
	}

	var paid int64
	for _, amount := range payouts {
		paid += amount
	}
	if paid+remainder != 10000 {
		t.Fatalf("pool not conserved: paid %d remainder %d", paid, remainder)
	}
	if remainder != 2 {
		t.Fatalf("remainder: got %d want 2", remainder)
	}
}

func TestSplitRewardsTopTenOnly(t *testing.T) {
	participants := make([]*models.RaidParticipant, 12)
	for i := range participants {
		participants[i] = &models.RaidParticipant{UserID: int64(i + 1), TotalDamage: int64(1200 - i*100)}
	}

	payouts, _, err := SplitRewards(100000, participants)
	if err != nil {
		t.Fatal(err)
	}

	topShare := int64(100000) * RAID_SHARE_TOP_BPS / 10000 / RAID_TOP_REWARDED
	totalDamage := int64(0)
	for _, p := range participants {
		totalDamage += p.TotalDamage
	}

	// rank 11 and 12 only get the damage-proportional share
	for _, p := range participants[RAID_TOP_REWARDED:] {
		damageShare := int64(100000) * RAID_SHARE_DAMAGE_BPS / 10000 * p.TotalDamage / totalDamage
		if payouts[p.UserID] != damageShare {
			t.Fatalf("user %d outside top %d got %d want %d", p.UserID, RAID_TOP_REWARDED, payouts[p.UserID], damageShare)
		}
	}

	// rank 1 gets damage share plus the even split
	damageShare := int64(100000) * RAID_SHARE_DAMAGE_BPS / 10000 * participants[0].TotalDamage / totalDamage
	if payouts[1] != damageShare+topShare {
		t.Fatalf("rank 1: got %d want %d", payouts[1], damageShare+topShare)
	}
}

func TestSplitRewardsNoParticipants(t *testing.T) {
	payouts, remainder, err := SplitRewards(5000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(payouts) != 0 {
		t.Fatalf("unexpected payouts: %v", payouts)
	}
	if remainder != 5000 {
		t.Fatalf("remainder: got %d want 5000", remainder)
	}
}

func TestSplitRewardsZeroDamage(t *testing.T) {
	// participants who joined but never attacked still split the top pool
	participants := []*models.RaidParticipant{
		{UserID: 1, TotalDamage: 0},
		{UserID: 2, TotalDamage: 0},
	}

	payouts, remainder, err := SplitRewards(10000, participants)
	if err != nil {
		t.Fatal(err)
	}

	if payouts[1] != 1000 || payouts[2] != 1000 {
		t.Fatalf("got %v want 1000 each", payouts)
	}
	if remainder != 8000 {
		t.Fatalf("remainder: got %d want 8000", remainder)
	}
}

func TestSplitRewardsNegativeDamage(t *testing.T) {
	_, _, err := SplitRewards(1000, []*models.RaidParticipant{{UserID: 1, TotalDamage: -1}})
	if err == nil {
		t.Fatal("expected error for negative damage")
	}
}

func TestRaidStillContested(t *testing.T) {
	cases := []struct {
		name string
		raid models.BossRaid
		want bool
	}{
		{"live boss with hp", models.BossRaid{Status: models.RaidStatusActive, HPCurrent: 100}, true},
		{"active at zero hp", models.BossRaid{Status: models.RaidStatusActive, HPCurrent: 0}, false},
		{"defeated", models.BossRaid{Status: models.RaidStatusDefeated, HPCurrent: 0}, false},
		{"expired", models.BossRaid{Status: models.RaidStatusExpired, HPCurrent: 100}, false},
	}

	for _, tc := range cases {
		if got := raidStillContested(&tc.raid); got != tc.want {
			t.Errorf("%s: raidStillContested = %v, want %v", tc.name, got, tc.want)
		}
	}
}
