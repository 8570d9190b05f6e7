package congress

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"govchain/core/clock"
	"govchain/core/types"
	"govchain/host"
)

var errGovBan = errors.New("gov ban call failed")

// recordingPromises is a host.Promises spy that records every scheduled
// Action so tests can assert on what Execute asked the host to do.
type recordingPromises struct {
	scheduled []host.Action
}

func (r *recordingPromises) Schedule(actions ...host.Action) host.PromiseID {
	r.scheduled = append(r.scheduled, actions...)
	return host.PromiseID("test-promise")
}

func newTestEngine(t *testing.T, now int64) *Engine {
	t.Helper()
	store := host.NewMemStore()
	e := NewEngine()
	e.SetState(NewStoreBackend(store, "house_of_merit"))
	e.SetClock(clock.Fixed{Millis: now})
	e.SetPromises(host.NewMemPromises())
	e.SetConfig(HouseConfig{
		Name:    "house_of_merit",
		Members: []types.AccountId{"alice", "bob", "carol"},
		Permissions: map[types.AccountId]map[Permission]bool{
			"alice": {PermText: true, PermFundingRequest: true, PermFunctionCall: true, PermDismissAndBan: true},
			"bob":   {PermText: true},
			"carol": {PermText: true},
		},
		HookAuth: map[types.AccountId]map[Hook]bool{
			"dao.votingbody": {HookVetoAll: true, HookDismiss: true, HookDissolve: true},
		},
		Threshold:           2,
		StartTime:           0,
		EndTime:             now + int64(time.Hour*1000),
		Cooldown:            time.Minute,
		VoteDuration:        time.Hour,
		MinVoteDuration:     time.Minute,
		BudgetCap:           types.NewAmountFromUint64(1_000_000),
		BigFundingThreshold: types.NewAmountFromUint64(500_000),
	})
	return e
}

func TestCreateProposalRequiresPermission(t *testing.T) {
	e := newTestEngine(t, 1000)
	_, err := e.CreateProposal("bob", KindFundingRequest, Payload{Amount: types.NewAmountFromUint64(10)}, "grant")
	require.Error(t, err)
}

func TestVoteClosesOnceAllMembersVoted(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "say hi")
	require.NoError(t, err)

	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))
	require.NoError(t, e.Vote("carol", id, VoteReject))

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, p.Status)
}

func TestVoteRejectsDoubleVote(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "say hi")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.Error(t, e.Vote("alice", id, VoteReject))
}

func TestVetoHookRequiresGrant(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindText, Payload{}, "say hi")
	require.NoError(t, err)
	err = e.VetoHook("nobody", id)
	require.Error(t, err)

	require.NoError(t, e.VetoHook("dao.votingbody", id))
	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusVetoed, p.Status)
}

func TestExecuteEnforcesBudgetCap(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindFundingRequest, Payload{Amount: types.NewAmountFromUint64(2_000_000)}, "big grant")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + time.Minute.Milliseconds() + 1}
	e.SetClock(closed)

	_, err = e.Execute(id, nil, nil)
	require.Error(t, err)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, p.Status, "budget overflow must leave status unchanged")
}

func TestExecuteSucceedsWithinBudget(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindFundingRequest, Payload{Amount: types.NewAmountFromUint64(10_000)}, "grant")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + time.Minute.Milliseconds() + 1}
	e.SetClock(closed)

	outcome, err := e.Execute(id, nil, nil)
	require.NoError(t, err)
	require.True(t, outcome.Ok)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, p.Status, "funding requests stay in flight until the scheduled transfer resolves")
	require.True(t, p.ExecutionInFlight)

	_, err = e.Execute(id, nil, nil)
	require.Error(t, err, "a second Execute while in flight must be rejected")

	outcome, err = e.ExecuteCallback(id, true, nil)
	require.NoError(t, err)
	require.True(t, outcome.Ok)

	p, _, err = e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, p.Status)
	require.False(t, p.ExecutionInFlight)
}

func TestExecuteCallbackFailureMovesToFailed(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindFunctionCall, Payload{Receiver: "someone"}, "call out")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + time.Minute.Milliseconds() + 1}
	e.SetClock(closed)

	_, err = e.Execute(id, nil, nil)
	require.NoError(t, err)

	outcome, err := e.ExecuteCallback(id, false, nil)
	require.NoError(t, err)
	require.False(t, outcome.Ok)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, p.Status)
	require.False(t, p.ExecutionInFlight)

	// Failed proposals may be retried.
	_, err = e.Execute(id, nil, nil)
	require.NoError(t, err)
}

func TestExecuteSchedulesFundingRequestTransfer(t *testing.T) {
	e := newTestEngine(t, 1000)
	promises := &recordingPromises{}
	e.SetPromises(promises)

	id, err := e.CreateProposal("alice", KindFundingRequest, Payload{Receiver: "dao-treasury", Amount: types.NewAmountFromUint64(10_000)}, "grant")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + time.Minute.Milliseconds() + 1}
	e.SetClock(closed)

	_, err = e.Execute(id, nil, nil)
	require.NoError(t, err)

	require.Len(t, promises.scheduled, 1)
	require.Equal(t, "dao-treasury", promises.scheduled[0].Target)
	require.Equal(t, "10000", promises.scheduled[0].Deposit)
}

func TestExecuteDismissAndBanFailureMovesToFailed(t *testing.T) {
	e := newTestEngine(t, 1000)
	id, err := e.CreateProposal("alice", KindDismissAndBan, Payload{Member: "carol"}, "bad actor")
	require.NoError(t, err)
	require.NoError(t, e.Vote("alice", id, VoteApprove))
	require.NoError(t, e.Vote("bob", id, VoteApprove))

	closed := clock.Fixed{Millis: 1000 + time.Hour.Milliseconds() + time.Minute.Milliseconds() + 1}
	e.SetClock(closed)

	failingGovBan := func(types.AccountId) error { return errGovBan }
	outcome, err := e.Execute(id, failingGovBan, nil)
	require.NoError(t, err)
	require.False(t, outcome.Ok)

	p, _, err := e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, p.Status)

	outcome, err = e.Execute(id, func(types.AccountId) error { return nil }, func(types.AccountId) error { return nil })
	require.NoError(t, err)
	require.True(t, outcome.Ok)

	p, _, err = e.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, p.Status)
}

