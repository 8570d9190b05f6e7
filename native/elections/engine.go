package elections

import (
	"sort"
	"strings"

	"govchain/core/clock"
	"govchain/core/events"
	"govchain/core/taxonomy"
	"govchain/core/types"
	"govchain/host"
	"govchain/identity"
	"govchain/native/govcore"
)

// Engine is the Elections tally engine.
type Engine struct {
	state    electionsState
	emitter  events.Emitter
	clock    clock.Clock
	identity identity.Registry
	promises host.Promises

	authority types.AccountId

	// bonds is keyed by (proposal id, voter); each election proposal
	// escrows its own bond pool, since an account may bond into several
	// concurrent elections independently.
	bonds map[types.ProposalId]map[types.AccountId]govcore.Bond

	// acceptedPolicy tracks each voter's most recently accepted policy
	// hash, per spec §4.3's accept_fair_voting_policy.
	acceptedPolicy map[types.AccountId][32]byte
	hasAccepted    map[types.AccountId]bool
}

// NewEngine constructs an Elections engine with no-op defaults.
func NewEngine() *Engine {
	return &Engine{
		emitter:        events.NoopEmitter{},
		clock:          clock.System{},
		bonds:          map[types.ProposalId]map[types.AccountId]govcore.Bond{},
		acceptedPolicy: map[types.AccountId][32]byte{},
		hasAccepted:    map[types.AccountId]bool{},
	}
}

func (e *Engine) SetState(state electionsState) { e.state = state }
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}
func (e *Engine) SetClock(c clock.Clock) {
	if c == nil {
		e.clock = clock.System{}
		return
	}
	e.clock = c
}
func (e *Engine) SetIdentity(reg identity.Registry) { e.identity = reg }
func (e *Engine) SetPromises(p host.Promises)       { e.promises = p }
func (e *Engine) SetAuthority(a types.AccountId)    { e.authority = a }

func (e *Engine) now() int64 { return e.clock.NowMillis() }

// CreateProposal opens a new election; authority-only.
func (e *Engine) CreateProposal(caller types.AccountId, typ HouseType, start, end, cooldownMs int64, refLink string, quorum uint64, candidates []types.AccountId, seats, minCandidateSupport uint64, policyHash [32]byte) (types.ProposalId, error) {
	if caller != e.authority {
		return 0, taxonomy.ErrAuthorityOnly
	}
	if start >= end {
		return 0, taxonomy.ErrWrongStatus
	}
	if len(refLink) > 120 {
		return 0, taxonomy.ErrStorageDepositShort
	}
	if len(candidates) == 0 {
		return 0, taxonomy.ErrWrongStatus
	}
	seen := map[types.AccountId]struct{}{}
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			return 0, taxonomy.ErrWrongStatus
		}
		seen[c] = struct{}{}
	}

	id, err := e.state.NextProposalId()
	if err != nil {
		return 0, err
	}
	p := newProposal()
	p.Id = id
	p.Typ = typ
	p.Candidates = candidates
	p.Start = start
	p.End = end
	p.Cooldown = cooldownMs
	p.RefLink = refLink
	p.Quorum = quorum
	p.Seats = seats
	p.MinCandidateSupport = minCandidateSupport
	p.FinishTime = end + cooldownMs
	for _, c := range candidates {
		p.Counts[c] = 0
	}
	if err := e.state.PutProposal(p); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.ProposalCreated("elections", id, caller, string(typ)))
	return id, nil
}

// AcceptFairVotingPolicy records hash as caller's most recently accepted
// policy, required before Vote.
func (e *Engine) AcceptFairVotingPolicy(caller types.AccountId, hash [32]byte) error {
	e.acceptedPolicy[caller] = hash
	e.hasAccepted[caller] = true
	if e.identity != nil {
		_ = e.identity.AcceptedPolicyHash(caller, hash)
	}
	return nil
}

// AcceptedPolicy returns the caller's most recently accepted hash.
func (e *Engine) AcceptedPolicy(caller types.AccountId) ([32]byte, bool) {
	h, ok := e.acceptedPolicy[caller]
	return h, ok
}

// Policy returns caller's most recently accepted policy hash. Elections
// gates vote() on the voter's globally most-recent acceptance rather
// than a per-proposal hash, matching spec §4.3's "required before vote"
// phrasing — there is no per-proposal policy hash to read back, so this
// is kept as a thin alias over AcceptedPolicy for the caller who created
// the proposal.
func (e *Engine) Policy(caller types.AccountId) ([32]byte, bool) {
	return e.AcceptedPolicy(caller)
}

// Bond escrows amount as caller's bond for propId, unlocking the right
// to vote. Re-entry adds to the existing bond.
func (e *Engine) Bond(caller types.AccountId, propId types.ProposalId, amount types.Amount) error {
	if _, err := e.identity.IsHumanCall(caller); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	pool, ok := e.bonds[propId]
	if !ok {
		pool = map[types.AccountId]govcore.Bond{}
		e.bonds[propId] = pool
	}
	updated, err := govcore.Lock(pool[caller], caller, amount)
	if err != nil {
		return err
	}
	pool[caller] = updated
	return nil
}

// BondBySbt reports the bond balance caller currently holds for propId.
func (e *Engine) BondBySbt(propId types.ProposalId, caller types.AccountId) types.Amount {
	return e.bonds[propId][caller].Amount
}

// Vote casts an immutable ballot.
func (e *Engine) Vote(caller types.AccountId, propId types.ProposalId, candidates []types.AccountId) error {
	if _, err := e.identity.IsHumanCall(caller); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if e.bonds[propId][caller].Amount.IsZero() {
		return taxonomy.ErrInsufficientBond
	}
	if !e.hasAccepted[caller] {
		return taxonomy.ErrMissingPermission
	}
	now := e.now()
	if now < p.Start || now >= p.End {
		return taxonomy.ErrVotingClosed
	}
	if uint64(len(candidates)) > p.Seats {
		return taxonomy.ErrWrongStatus
	}
	seen := map[types.AccountId]struct{}{}
	candidateSet := map[types.AccountId]struct{}{}
	for _, c := range p.Candidates {
		candidateSet[c] = struct{}{}
	}
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			return taxonomy.ErrWrongStatus
		}
		seen[c] = struct{}{}
		if _, known := candidateSet[c]; !known {
			return taxonomy.ErrWrongStatus
		}
	}
	if _, voted := p.Ballots[caller]; voted {
		return taxonomy.ErrAlreadyVoted
	}

	p.Ballots[caller] = Ballot{Candidates: candidates}
	for _, c := range candidates {
		p.Counts[c]++
	}
	p.VotersCount++
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.emitter.Emit(events.VoteCast("elections", propId, caller, strings.Join(accountsToStrings(candidates), ",")))
	return nil
}

func accountsToStrings(ids []types.AccountId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// RevokeVote removes a previously cast ballot, authority-only, allowed
// only during [end, end+cooldown).
func (e *Engine) RevokeVote(caller types.AccountId, propId types.ProposalId, voters []types.AccountId) error {
	if caller != e.authority {
		return taxonomy.ErrAuthorityOnly
	}
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	now := e.now()
	if now < p.End || now >= p.End+p.Cooldown {
		return taxonomy.ErrCooldownActive
	}
	for _, voter := range voters {
		ballot, ok := p.Ballots[voter]
		if !ok {
			continue
		}
		for _, c := range ballot.Candidates {
			if p.Counts[c] > 0 {
				p.Counts[c]--
			}
		}
		delete(p.Ballots, voter)
	}
	return e.state.PutProposal(p)
}

// DisqualifyCandidates strips candidates' tallies irrespective of
// cooldown, authority-only.
func (e *Engine) DisqualifyCandidates(caller types.AccountId, propId types.ProposalId, candidates []types.AccountId) error {
	if caller != e.authority {
		return taxonomy.ErrAuthorityOnly
	}
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	for _, c := range candidates {
		p.Disqualified[c] = struct{}{}
		delete(p.Counts, c)
	}
	return e.state.PutProposal(p)
}

// Unbond refunds caller's bond for propId once finish_time has passed,
// minting an "I VOTED" credential if caller voted on every proposal.
func (e *Engine) Unbond(caller types.AccountId, propId types.ProposalId) (types.Amount, error) {
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return types.ZeroAmount(), err
	}
	if !found {
		return types.ZeroAmount(), taxonomy.ErrProposalNotFound
	}
	if e.now() < p.FinishTime {
		return types.ZeroAmount(), taxonomy.ErrCooldownActive
	}
	pool := e.bonds[propId]
	bond, ok := pool[caller]
	if !ok {
		return types.ZeroAmount(), taxonomy.ErrInsufficientBond
	}
	payout := govcore.Release(bond)
	delete(pool, caller)

	if e.HasVotedOnAllProposals(caller) && e.identity != nil {
		_, _ = e.identity.MintVotedCredential(caller, 1)
	}
	return payout, nil
}

// AdminSetFinishTime extends a proposal's finish_time, authority-only,
// monotonically non-decreasing relative to the current value.
func (e *Engine) AdminSetFinishTime(caller types.AccountId, propId types.ProposalId, newFinish int64) error {
	if caller != e.authority {
		return taxonomy.ErrAuthorityOnly
	}
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if newFinish < p.FinishTime {
		return taxonomy.ErrWrongStatus
	}
	p.FinishTime = newFinish
	return e.state.PutProposal(p)
}

// FinishTime returns a proposal's current finish_time.
func (e *Engine) FinishTime(propId types.ProposalId) (int64, error) {
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, taxonomy.ErrProposalNotFound
	}
	return p.FinishTime, nil
}

// ProposalStatus derives a proposal's current Status from now.
func (e *Engine) ProposalStatus(propId types.ProposalId) (Status, error) {
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return "", err
	}
	if !found {
		return "", taxonomy.ErrProposalNotFound
	}
	now := e.now()
	switch {
	case now < p.End:
		return StatusOpen, nil
	case now < p.FinishTime:
		return StatusCooldown, nil
	default:
		return StatusFinished, nil
	}
}

// winnerEntry pairs a candidate with its vote count for sorting.
type winnerEntry struct {
	candidate types.AccountId
	count     uint64
}

// WinnersByProposal returns candidates meeting min_candidate_support,
// ordered by count descending and then by ascending AccountId, cut to
// the top `seats`; candidates tied with the last seat's count are all
// kept, so the result can be longer than `seats`.
// Returns empty unless the election is Finished, unless ongoing is true.
func (e *Engine) WinnersByProposal(propId types.ProposalId, ongoing bool) ([]types.AccountId, error) {
	p, found, err := e.state.GetProposal(propId)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, taxonomy.ErrProposalNotFound
	}
	if !ongoing && e.now() < p.FinishTime {
		return nil, nil
	}
	var entries []winnerEntry
	for c, count := range p.Counts {
		if _, disqualified := p.Disqualified[c]; disqualified {
			continue
		}
		if count < p.MinCandidateSupport {
			continue
		}
		entries = append(entries, winnerEntry{candidate: c, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].candidate < entries[j].candidate
	})
	// A tie at the seat cutoff is retained in full rather than broken
	// arbitrarily: every candidate sharing the last winning seat's vote
	// count makes it in, even past p.Seats.
	if p.Seats > 0 && uint64(len(entries)) > p.Seats {
		cutoffCount := entries[p.Seats-1].count
		end := p.Seats
		for end < uint64(len(entries)) && entries[end].count == cutoffCount {
			end++
		}
		entries = entries[:end]
	}
	out := make([]types.AccountId, len(entries))
	for i, entry := range entries {
		out[i] = entry.candidate
	}
	return out, nil
}

// HasVotedOnAllProposals reports whether user cast a ballot on every
// election proposal ever created.
func (e *Engine) HasVotedOnAllProposals(user types.AccountId) bool {
	ids, err := e.state.AllProposalIds()
	if err != nil {
		return false
	}
	for _, id := range ids {
		p, found, err := e.state.GetProposal(id)
		if err != nil || !found {
			continue
		}
		if _, voted := p.Ballots[user]; !voted {
			return false
		}
	}
	return len(ids) > 0
}

// UserVotes returns the candidates user voted for on propId, if any.
func (e *Engine) UserVotes(user types.AccountId, propId types.ProposalId) ([]types.AccountId, bool) {
	p, found, err := e.state.GetProposal(propId)
	if err != nil || !found {
		return nil, false
	}
	ballot, voted := p.Ballots[user]
	return ballot.Candidates, voted
}
