package elections

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govchain/core/clock"
	"govchain/core/types"
	"govchain/host"
	"govchain/identity"
)

func newTestEngine(t *testing.T, now int64) *Engine {
	t.Helper()
	store := host.NewMemStore()
	reg := identity.NewMemRegistry([]types.AccountId{"alice", "bob", "carol"}, func() int64 { return now }, []byte("test-signing-key"))

	e := NewEngine()
	e.SetState(NewStoreBackend(store))
	e.SetClock(clock.Fixed{Millis: now})
	e.SetIdentity(reg)
	e.SetPromises(host.NewMemPromises())
	e.SetAuthority("authority")
	return e
}

func createOpenProposal(t *testing.T, e *Engine, now int64) types.ProposalId {
	t.Helper()
	id, err := e.CreateProposal("authority", HouseOfMerit, now-100, now+1000, 500, "ref", 1,
		[]types.AccountId{"candidate1", "candidate2"}, 1, 0, [32]byte{})
	require.NoError(t, err)
	return id
}

func TestCreateProposalRejectsNonAuthority(t *testing.T) {
	e := newTestEngine(t, 1000)
	_, err := e.CreateProposal("alice", HouseOfMerit, 0, 100, 10, "ref", 1, []types.AccountId{"c1"}, 1, 0, [32]byte{})
	require.Error(t, err)
}

func TestCreateProposalRejectsDuplicateCandidates(t *testing.T) {
	e := newTestEngine(t, 1000)
	_, err := e.CreateProposal("authority", HouseOfMerit, 0, 100, 10, "ref", 1,
		[]types.AccountId{"c1", "c1"}, 1, 0, [32]byte{})
	require.Error(t, err)
}

func TestBondAccumulates(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)

	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))
	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(5)))
	require.Equal(t, "15", e.BondBySbt(id, "alice").String())
}

func TestVoteRequiresBondAndPolicyAcceptance(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)

	err := e.Vote("alice", id, []types.AccountId{"candidate1"})
	require.Error(t, err, "no bond, no accepted policy")

	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))
	err = e.Vote("alice", id, []types.AccountId{"candidate1"})
	require.Error(t, err, "bonded but policy not accepted")

	require.NoError(t, e.AcceptFairVotingPolicy("alice", [32]byte{1}))
	require.NoError(t, e.Vote("alice", id, []types.AccountId{"candidate1"}))
}

func TestVoteIsImmutable(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)
	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))
	require.NoError(t, e.AcceptFairVotingPolicy("alice", [32]byte{1}))
	require.NoError(t, e.Vote("alice", id, []types.AccountId{"candidate1"}))

	err := e.Vote("alice", id, []types.AccountId{"candidate2"})
	require.Error(t, err)
}

func TestVoteRejectsUnknownCandidate(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)
	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))
	require.NoError(t, e.AcceptFairVotingPolicy("alice", [32]byte{1}))

	err := e.Vote("alice", id, []types.AccountId{"nobody"})
	require.Error(t, err)
}

func TestWinnersByProposalOrdersByCountThenId(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("authority", HouseOfMerit, 900, 2000, 500, "ref", 1,
		[]types.AccountId{"zed", "alpha", "mid"}, 2, 0, [32]byte{})
	require.NoError(t, err)

	for _, voter := range []types.AccountId{"alice", "bob", "carol"} {
		require.NoError(t, e.Bond(voter, id, types.NewAmountFromUint64(10)))
		require.NoError(t, e.AcceptFairVotingPolicy(voter, [32]byte{1}))
	}
	require.NoError(t, e.Vote("alice", id, []types.AccountId{"zed"}))
	require.NoError(t, e.Vote("bob", id, []types.AccountId{"alpha"}))
	require.NoError(t, e.Vote("carol", id, []types.AccountId{"zed"}))

	winners, err := e.WinnersByProposal(id, true)
	require.NoError(t, err)
	require.Equal(t, []types.AccountId{"zed", "alpha"}, winners)
}

func TestWinnersByProposalRetainsTiesAtSeatCutoff(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("authority", HouseOfMerit, 900, 2000, 500, "ref", 1,
		[]types.AccountId{"A", "B", "C", "D"}, 2, 0, [32]byte{})
	require.NoError(t, err)

	aVoters := []types.AccountId{"v1", "v2", "v3", "v4", "v5"}
	bVoters := []types.AccountId{"v6", "v7", "v8"}
	cVoters := []types.AccountId{"v9", "v10", "v11"}
	dVoters := []types.AccountId{"v12", "v13", "v14"}
	allVoters := append(append(append(append([]types.AccountId{}, aVoters...), bVoters...), cVoters...), dVoters...)
	for _, voter := range allVoters {
		e.identity.(*identity.MemRegistry).Verify(voter)
		require.NoError(t, e.Bond(voter, id, types.NewAmountFromUint64(10)))
		require.NoError(t, e.AcceptFairVotingPolicy(voter, [32]byte{1}))
	}
	for _, voter := range aVoters {
		require.NoError(t, e.Vote(voter, id, []types.AccountId{"A"}))
	}
	for _, voter := range bVoters {
		require.NoError(t, e.Vote(voter, id, []types.AccountId{"B"}))
	}
	for _, voter := range cVoters {
		require.NoError(t, e.Vote(voter, id, []types.AccountId{"C"}))
	}
	for _, voter := range dVoters {
		require.NoError(t, e.Vote(voter, id, []types.AccountId{"D"}))
	}

	// A=5, B=3, C=3, D=3, seats=2: B/C/D tie at the cutoff and all three
	// are retained alongside A rather than breaking the tie arbitrarily.
	winners, err := e.WinnersByProposal(id, true)
	require.NoError(t, err)
	require.Equal(t, []types.AccountId{"A", "B", "C", "D"}, winners)
}

func TestWinnersByProposalEmptyUntilFinished(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)
	winners, err := e.WinnersByProposal(id, false)
	require.NoError(t, err)
	require.Empty(t, winners)
}

func TestUnbondRefundsAfterFinishTime(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("authority", HouseOfMerit, 900, 1000, 500, "ref", 1,
		[]types.AccountId{"candidate1"}, 1, 0, [32]byte{})
	require.NoError(t, err)
	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))

	_, err = e.Unbond("alice", id)
	require.Error(t, err, "finish time not reached yet")

	e.SetClock(clock.Fixed{Millis: 1000 + 500 + 1})
	amount, err := e.Unbond("alice", id)
	require.NoError(t, err)
	require.Equal(t, "10", amount.String())
}

func TestAdminSetFinishTimeRejectsDecrease(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)
	current, err := e.FinishTime(id)
	require.NoError(t, err)

	err = e.AdminSetFinishTime("authority", id, current-1)
	require.Error(t, err)

	require.NoError(t, e.AdminSetFinishTime("authority", id, current+100))
}

func TestDisqualifyCandidatesStripsTally(t *testing.T) {
	e := newTestEngine(t, 1000)
	id := createOpenProposal(t, e, 1000)
	require.NoError(t, e.Bond("alice", id, types.NewAmountFromUint64(10)))
	require.NoError(t, e.AcceptFairVotingPolicy("alice", [32]byte{1}))
	require.NoError(t, e.Vote("alice", id, []types.AccountId{"candidate1"}))

	require.NoError(t, e.DisqualifyCandidates("authority", id, []types.AccountId{"candidate1"}))
	winners, err := e.WinnersByProposal(id, true)
	require.NoError(t, err)
	require.NotContains(t, winners, types.AccountId("candidate1"))
}
