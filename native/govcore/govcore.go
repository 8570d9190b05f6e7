// Package govcore holds the shared substrate every governance engine
// builds on: bond escrow, the slash-reward payout, and the quorum/
// threshold math the Voting Body classifies proposals with.
package govcore

import (
	"fmt"

	"govchain/core/types"
)

// SlashReward is the fixed payout a slasher receives out of a forfeited
// bond, per spec §3's "refunded minus a fixed slash reward to the
// slasher" and §4.1's community-fund routing.
var SlashReward = types.NewAmountFromUint64(900_000_000_000_000_000) // 0.9 native units, 18 decimals

// Bond tracks an escrowed amount held by an engine on behalf of an
// account until it is released, burned, or split between a slasher and
// the community fund.
type Bond struct {
	Owner  types.AccountId
	Amount types.Amount
}

// Lock escrows amount on top of any bond the owner already holds.
func Lock(existing Bond, owner types.AccountId, amount types.Amount) (Bond, error) {
	if existing.Owner != "" && existing.Owner != owner {
		return Bond{}, fmt.Errorf("govcore: bond owner mismatch")
	}
	total, err := existing.Amount.Add(amount)
	if err != nil {
		return Bond{}, err
	}
	return Bond{Owner: owner, Amount: total}, nil
}

// Release returns the full bond to its owner, leaving nothing behind.
func Release(b Bond) (payout types.Amount) {
	return b.Amount
}

// Slash splits a forfeited bond between the slasher (SlashReward,
// floored to the bond's balance) and the community fund (the
// remainder), matching spec §4.1's slash_prevote_proposal and the Spam
// classification payout.
func Slash(b Bond) (toSlasher, toCommunityFund types.Amount) {
	if b.Amount.Cmp(SlashReward) <= 0 {
		return b.Amount, types.ZeroAmount()
	}
	remainder, err := b.Amount.Sub(SlashReward)
	if err != nil {
		return b.Amount, types.ZeroAmount()
	}
	return SlashReward, remainder
}

// QuorumKind selects which of the two quorum/threshold pairs spec §4.1
// assigns a Voting Body proposal kind.
type QuorumKind int

const (
	// NearConsent: 7% quorum, 50% approval threshold. The default for
	// every proposal kind except TextSuper and Dissolve.
	NearConsent QuorumKind = iota
	// NearSupermajorityConsent: 12% quorum, 60% approval threshold. Used
	// by TextSuper and Dissolve.
	NearSupermajorityConsent
)

// quorumFraction and thresholdFraction are expressed as (numerator,
// denominator) pairs to keep the classification arithmetic in integers,
// matching spec §4.1's ceil(q·V) / threshold·N comparisons exactly
// without floating-point rounding risk.
func (k QuorumKind) quorumFraction() (num, den uint64) {
	if k == NearSupermajorityConsent {
		return 12, 100
	}
	return 7, 100
}

func (k QuorumKind) thresholdFraction() (num, den uint64) {
	if k == NearSupermajorityConsent {
		return 60, 100
	}
	return 50, 100
}

// Status is the terminal classification a closed voting window resolves
// to.
type Status string

const (
	StatusApproved Status = "Approved"
	StatusSpam     Status = "Spam"
	StatusRejected Status = "Rejected"
)

// ceilDiv computes ceil(num/den) for non-negative integers.
func ceilDiv(num, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	return (num + den - 1) / den
}

// Classify implements spec §4.1's classification rules: quorum is
// ceil(q·V); a proposal is Approved iff N ≥ quorum and
// approve > threshold·N; it is Spam iff spam > reject and
// reject+spam ≥ (1-threshold)·N; otherwise Rejected.
func Classify(kind QuorumKind, approve, reject, spam, bodySize uint64) Status {
	n := approve + reject + spam
	qNum, qDen := kind.quorumFraction()
	quorum := ceilDiv(qNum*bodySize, qDen)
	tNum, tDen := kind.thresholdFraction()

	if n >= quorum && approve*tDen > tNum*n {
		return StatusApproved
	}
	if spam > reject && (reject+spam)*tDen >= (tDen-tNum)*n {
		return StatusSpam
	}
	return StatusRejected
}
