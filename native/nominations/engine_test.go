package nominations

import (
	"testing"

	"github.com/stretchr/testify/require"

	"govchain/core/clock"
	"govchain/core/types"
	"govchain/host"
	"govchain/identity"
)

type allowAllCreds struct{}

func (allowAllCreds) HasOGCredential(types.AccountId) bool { return true }

func newTestEngine(t *testing.T, now int64) *Engine {
	t.Helper()
	store := host.NewMemStore()
	reg := identity.NewMemRegistry([]types.AccountId{"alice", "bob", "carol"}, func() int64 { return now }, []byte("test-signing-key"))

	e := NewEngine()
	e.SetState(NewStoreBackend(store))
	e.SetClock(clock.Fixed{Millis: now})
	e.SetIdentity(reg)
	e.SetCredentialChecker(allowAllCreds{})
	e.SetWindow(0, 10000)
	return e
}

func TestSelfNominateRejectsOutsideWindow(t *testing.T) {
	e := newTestEngine(t, 1000)
	e.SetWindow(2000, 3000)
	err := e.SelfNominate("alice", HouseOfMerit, "comment", "link")
	require.Error(t, err)
}

func TestSelfNominateOncePerAccountAcrossHouses(t *testing.T) {
	e := newTestEngine(t, 1000)
	require.NoError(t, e.SelfNominate("alice", HouseOfMerit, "comment", "link"))
	err := e.SelfNominate("alice", CouncilOfAdvisors, "comment2", "link2")
	require.Error(t, err)
}

func TestSelfRevokeRemovesNomination(t *testing.T) {
	e := newTestEngine(t, 1000)
	require.NoError(t, e.SelfNominate("alice", HouseOfMerit, "comment", "link"))
	require.NoError(t, e.SelfRevoke("alice"))

	rows, err := e.NominationsByHouse(HouseOfMerit)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUpvoteIsOncePerVoterPerCandidate(t *testing.T) {
	e := newTestEngine(t, 1000)
	require.NoError(t, e.SelfNominate("alice", HouseOfMerit, "comment", "link"))

	require.NoError(t, e.Upvote("bob", "alice"))
	err := e.Upvote("bob", "alice")
	require.Error(t, err)

	rows, err := e.NominationsByHouse(HouseOfMerit)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 1, rows[0].Upvotes)
}

func TestRemoveUpvoteIsIdempotent(t *testing.T) {
	e := newTestEngine(t, 1000)
	require.NoError(t, e.SelfNominate("alice", HouseOfMerit, "comment", "link"))
	require.NoError(t, e.Upvote("bob", "alice"))

	require.NoError(t, e.RemoveUpvote("bob", "alice"))
	require.NoError(t, e.RemoveUpvote("bob", "alice"), "removing twice is a no-op")

	rows, err := e.NominationsByHouse(HouseOfMerit)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows[0].Upvotes)
}

func TestCommentRequiresExistingCandidate(t *testing.T) {
	e := newTestEngine(t, 1000)
	err := e.Comment("bob", "alice", "great candidate")
	require.Error(t, err)

	require.NoError(t, e.SelfNominate("alice", HouseOfMerit, "comment", "link"))
	require.NoError(t, e.Comment("bob", "alice", "great candidate"))
}
