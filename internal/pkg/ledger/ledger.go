// Package ledger is pure integer arithmetic over raw token units. Rates are
// basis points so settlement paths never touch floating point.
package ledger

import "errors"

const BpsDenominator = 10000

var ErrNegativeInput = errors.New("ledger: negative input")

// Burn returns floor(amount * rateBps / 10000).
func Burn(amount int64, rateBps int64) (int64, error) {
	if amount < 0 || rateBps < 0 {
		return 0, ErrNegativeInput
	}
	return amount * rateBps / BpsDenominator, nil
}

// WinnerShare returns floor(pot * rateBps / 10000). For complementary rates
// (burn + winner == 10000) the floor divisions guarantee
// Burn(pot) + WinnerShare(pot) <= pot; settlement callers that must conserve
// the pot exactly compute the winner side as pot - burned instead.
func WinnerShare(pot int64, rateBps int64) (int64, error) {
	if pot < 0 || rateBps < 0 {
		return 0, ErrNegativeInput
	}
	return pot * rateBps / BpsDenominator, nil
}

// WithinTolerance reports whether verified lands within toleranceBps of the
// declared amount, both sides of the band inclusive.
func WithinTolerance(declared int64, verified int64, toleranceBps int64) bool {
	if declared <= 0 || verified < 0 || toleranceBps < 0 {
		return false
	}

	diff := declared - verified
	if diff < 0 {
		diff = -diff
	}

	return diff*BpsDenominator <= declared*toleranceBps
}

// NeglectPenalty compounds daily: the stake retains keepRateBps of its value
// each neglected day, and the penalty is what it lost.
func NeglectPenalty(staked int64, daysNeglected int, keepRateBps int64) (int64, error) {
	if staked < 0 || daysNeglected < 0 || keepRateBps < 0 {
		return 0, ErrNegativeInput
	}

	remaining := staked
	for i := 0; i < daysNeglected; i++ {
		remaining = remaining * keepRateBps / BpsDenominator
	}

	return staked - remaining, nil
}
