package votingbody

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"govchain/core/clock"
	"govchain/core/types"
	"govchain/host"
	"govchain/identity"
)

// recordingPromises is a host.Promises spy that records every scheduled
// Action so tests can assert on bond refund/slash payouts without a real
// host runtime.
type recordingPromises struct {
	scheduled []host.Action
}

func (r *recordingPromises) Schedule(actions ...host.Action) host.PromiseID {
	r.scheduled = append(r.scheduled, actions...)
	return host.PromiseID("test-promise")
}

func newTestEngine(t *testing.T, now int64) (*Engine, *host.MemStore, *identity.MemRegistry) {
	t.Helper()
	store := host.NewMemStore()
	reg := identity.NewMemRegistry([]types.AccountId{"alice", "bob", "carol"}, func() int64 { return now }, []byte("test-signing-key"))

	e := NewEngine()
	e.SetState(NewStoreBackend(store))
	e.SetClock(clock.Fixed{Millis: now})
	e.SetIdentity(reg)
	e.SetPromises(host.NewMemPromises())
	e.SetPolicy(Policy{
		PreVoteBond:     types.NewAmountFromUint64(10),
		ActiveQueueBond: types.NewAmountFromUint64(100),
		PreVoteDuration: time.Hour,
		VoteDuration:    time.Hour,
		StartTime:       0,
		EndTime:         now + int64(time.Hour*1000),
		CommunityFund:   "community",
	})
	return e, store, reg
}

func TestCreateProposalStartsInPreVoteBelowActiveBond(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(20))
	require.NoError(t, err)

	p, found, err := e.Proposal(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusPreVote, p.Status)
}

func TestCreateProposalPromotesWithActiveBond(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, p.Status)
	require.Equal(t, int64(1000), p.StartTime)
}

func TestCreateProposalRejectsInsufficientBond(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	_, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(1))
	require.Error(t, err)
}

func TestSupportProposalPromotesAtThreshold(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(20))
	require.NoError(t, err)

	require.NoError(t, e.SupportProposal("bob", id, 1, time.Hour))
	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, p.Status)
	require.Empty(t, p.Supporters)
}

func TestVoteLastVoteWins(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)

	require.NoError(t, e.Vote("bob", id, VoteApprove, time.Hour))
	require.NoError(t, e.Vote("bob", id, VoteReject, time.Hour))

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.EqualValues(t, 0, p.ApproveCount)
	require.EqualValues(t, 1, p.RejectCount)
}

func TestVoteRejectedAfterWindowCloses(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)

	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + 1})
	err = e.Vote("bob", id, VoteApprove, time.Hour)
	require.Error(t, err)
}

func TestVoteRejectedExactlyAtWindowBoundary(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)

	// §8's boundary pin: a vote cast at exactly start_time+vote_duration
	// is rejected, not accepted.
	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds()})
	err = e.Vote("bob", id, VoteApprove, time.Hour)
	require.Error(t, err)
}

func TestExecuteClassifiesAndExecutesTextProposal(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)

	require.NoError(t, e.Vote("alice", id, VoteApprove, time.Hour))
	require.NoError(t, e.Vote("bob", id, VoteApprove, time.Hour))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + 1}
	e.SetClock(closed)

	outcome, err := e.Execute("authority", id, 10)
	require.NoError(t, err)
	require.True(t, outcome.Ok)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, p.Status)
}

func TestExecuteAllowedExactlyAtWindowBoundary(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove, time.Hour))
	require.NoError(t, e.Vote("bob", id, VoteApprove, time.Hour))

	// The window is closed (per §8) by the time Execute observes this
	// instant, so classification must proceed rather than error.
	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds()})
	outcome, err := e.Execute("authority", id, 10)
	require.NoError(t, err)
	require.True(t, outcome.Ok)
}

func TestSlashPreVoteProposalRequiresExpiry(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(20))
	require.NoError(t, err)

	err = e.SlashPreVoteProposal("bob", id)
	require.Error(t, err)

	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + 1})
	require.NoError(t, e.SlashPreVoteProposal("bob", id))

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusDeleted, p.Status)

	outcome, err := e.Execute("authority", id, 10)
	require.Error(t, err, "a slashed pre-vote proposal must never re-enter Execute")
	require.Nil(t, outcome)
}

func TestExecuteRefundsBondOnApproval(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	promises := &recordingPromises{}
	e.SetPromises(promises)

	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(100))
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove, time.Hour))
	require.NoError(t, e.Vote("bob", id, VoteApprove, time.Hour))

	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + 1})
	_, err = e.Execute("authority", id, 10)
	require.NoError(t, err)

	require.Len(t, promises.scheduled, 1)
	require.Equal(t, "alice", promises.scheduled[0].Target)
	require.Equal(t, "100", promises.scheduled[0].Deposit)
}

func TestSlashPreVoteProposalBelowRewardPaysSlasherOnly(t *testing.T) {
	e, _, _ := newTestEngine(t, 1000)
	promises := &recordingPromises{}
	e.SetPromises(promises)

	id, err := e.CreateProposal("alice", KindText, Payload{}, "hello", types.NewAmountFromUint64(20))
	require.NoError(t, err)

	e.SetClock(clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + 1})
	require.NoError(t, e.SlashPreVoteProposal("bob", id))

	require.Len(t, promises.scheduled, 1, "bond (20) is below SlashReward, so all of it goes to the slasher")
	require.Equal(t, "bob", promises.scheduled[0].Target)
	require.Equal(t, "20", promises.scheduled[0].Deposit)
}
