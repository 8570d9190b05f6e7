package govcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govchain/core/types"
)

func TestClassifyBelowQuorumIsRejected(t *testing.T) {
	// 100 body size, 7% quorum -> 7 votes needed; only 6 were cast.
	status := Classify(NearConsent, 6, 0, 0, 100)
	require.Equal(t, StatusRejected, status)
}

func TestClassifyApprovedMeetsQuorum(t *testing.T) {
	status := Classify(NearConsent, 5, 1, 1, 100)
	require.Equal(t, StatusApproved, status)
}

func TestClassifySpam(t *testing.T) {
	status := Classify(NearConsent, 1, 1, 6, 100)
	require.Equal(t, StatusSpam, status)
}

func TestClassifyRejected(t *testing.T) {
	status := Classify(NearConsent, 1, 6, 0, 100)
	require.Equal(t, StatusRejected, status)
}

func TestClassifySupermajorityRequiresHigherQuorum(t *testing.T) {
	// 12% of 100 = 12 quorum; 10 total votes never reaches quorum.
	status := Classify(NearSupermajorityConsent, 9, 1, 0, 100)
	require.Equal(t, StatusRejected, status)
}

func TestBondLockAccumulates(t *testing.T) {
	owner := types.AccountId("dao1alice")
	b, err := Lock(Bond{}, owner, types.NewAmountFromUint64(100))
	require.NoError(t, err)
	b, err = Lock(b, owner, types.NewAmountFromUint64(50))
	require.NoError(t, err)
	require.Equal(t, "150", b.Amount.String())
}

func TestBondLockRejectsOwnerMismatch(t *testing.T) {
	b := Bond{Owner: types.AccountId("alice"), Amount: types.NewAmountFromUint64(10)}
	_, err := Lock(b, types.AccountId("bob"), types.NewAmountFromUint64(5))
	require.Error(t, err)
}

func TestSlashBelowRewardPaysAllToSlasher(t *testing.T) {
	small := types.NewAmountFromUint64(1)
	toSlasher, toFund := Slash(Bond{Owner: "alice", Amount: small})
	require.Equal(t, small.String(), toSlasher.String())
	require.True(t, toFund.IsZero())
}

func TestSlashAboveRewardSplits(t *testing.T) {
	big, err := SlashReward.Add(types.NewAmountFromUint64(1000))
	require.NoError(t, err)
	toSlasher, toFund := Slash(Bond{Owner: "alice", Amount: big})
	require.Equal(t, SlashReward.String(), toSlasher.String())
	require.Equal(t, "1000", toFund.String())
}
