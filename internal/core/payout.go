package core

import "math/big"

// mulDivFloor evaluates (Π numerators) / (Π denominators) with a wide
// (effectively 128-bit+) intermediate, flooring the result. All reward
// formulas in the payout engine are of this "(a*b*c)/(d*e)" shape; using
// math/big for the intermediate avoids the overflow a native uint64
// multiplication would hit on realistic balances, the same way the teacher's
// GetUint128FromGlobalState reaches for math/big rather than truncating.
func mulDivFloor(numerators, denominators []uint64) uint64 {
	n := big.NewInt(1)
	for _, x := range numerators {
		n.Mul(n, new(big.Int).SetUint64(x))
	}
	d := big.NewInt(1)
	for _, x := range denominators {
		d.Mul(d, new(big.Int).SetUint64(x))
	}
	if d.Sign() == 0 {
		return 0
	}
	n.Quo(n, d) // big.Int.Quo truncates toward zero; both operands are non-negative so this is floor.
	return n.Uint64()
}

// stakerCredit is the per-slot result of one epoch's reward allocation.
type stakerCredit struct {
	index int
	algo  uint64
	token uint64
}

// allocateRewards implements the two-pass proportional allocator of §4.4.
//
// Pass 1 credits every partial-epoch staker (entryTime in the future, or
// time-in-pool short of a full epoch) a time-weighted share of the *original*
// reward pools, then removes that share from what pass 2 will divide.
// Pass 2 divides whatever remains among full-epoch stakers by stake weight
// alone. This ordering is what stops a just-arrived staker from skimming a
// full epoch's yield: their weight only ever applies to the fraction of the
// epoch they were actually present for.
func allocateRewards(ledger []StakedInfo, algoReward, tokenReward, totalStaked uint64, now, epochSecs int64) (credits []stakerCredit, increasedStake, tokenPaidOut uint64) {
	var (
		partialTotal  uint64
		remainingAlgo = algoReward
		remainToken   = tokenReward
		fullIdxs      []int
	)

	for i, s := range ledger {
		if s.isEmpty() {
			continue
		}
		if s.EntryTime > now {
			partialTotal += s.Balance
			continue
		}
		timeInPool := now - s.EntryTime
		if timeInPool >= epochSecs {
			fullIdxs = append(fullIdxs, i)
			continue
		}
		partialTotal += s.Balance
		if totalStaked == 0 {
			continue
		}
		timePercent := uint64(timeInPool) * TimePercentDenominator / uint64(epochSecs)

		algoCredit := mulDivFloor([]uint64{algoReward, s.Balance, timePercent}, []uint64{totalStaked, TimePercentDenominator})
		var tokenCredit uint64
		if tokenReward > 0 {
			tokenCredit = mulDivFloor([]uint64{tokenReward, s.Balance, timePercent}, []uint64{totalStaked, TimePercentDenominator})
		}
		remainingAlgo -= algoCredit
		remainToken -= tokenCredit
		if algoCredit > 0 || tokenCredit > 0 {
			credits = append(credits, stakerCredit{index: i, algo: algoCredit, token: tokenCredit})
		}
	}

	effectiveStake := totalStaked - partialTotal
	if effectiveStake > 0 {
		for _, i := range fullIdxs {
			s := ledger[i]
			algoCredit := mulDivFloor([]uint64{remainingAlgo, s.Balance}, []uint64{effectiveStake})
			var tokenCredit uint64
			if remainToken > 0 {
				tokenCredit = mulDivFloor([]uint64{remainToken, s.Balance}, []uint64{effectiveStake})
			}
			credits = append(credits, stakerCredit{index: i, algo: algoCredit, token: tokenCredit})
		}
	}

	for _, c := range credits {
		increasedStake += c.algo
		tokenPaidOut += c.token
	}
	return credits, increasedStake, tokenPaidOut
}
