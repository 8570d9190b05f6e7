package votingbody

import (
	"fmt"
	"time"

	"govchain/core/clock"
	"govchain/core/events"
	"govchain/core/taxonomy"
	"govchain/core/types"
	"govchain/host"
	"govchain/identity"
	"govchain/native/govcore"
)

// CongressQuery is the cross-contract membership check
// support_proposal_by_congress needs: is dao a known Congress house, and
// is caller one of its members.
type CongressQuery interface {
	IsHouse(dao types.AccountId) bool
	IsMember(dao, caller types.AccountId) bool
}

// Policy captures the runtime knobs controlling proposal admission,
// mirroring the teacher's ProposalPolicy-plus-SetPolicy shape.
type Policy struct {
	PreVoteBond      types.Amount
	ActiveQueueBond  types.Amount
	PreVoteDuration  time.Duration
	VoteDuration     time.Duration
	StartTime        int64
	EndTime          int64
	CommunityFund    types.AccountId
	KnownHouses      []types.AccountId
}

// Engine is the Voting Body's proposal lifecycle engine.
type Engine struct {
	state    votingBodyState
	emitter  events.Emitter
	clock    clock.Clock
	identity identity.Registry
	promises host.Promises
	congress CongressQuery

	preVoteBond     types.Amount
	activeQueueBond types.Amount
	preVoteDuration time.Duration
	voteDuration    time.Duration
	startTime       int64
	endTime         int64
	communityFund   types.AccountId
	knownHouses     map[types.AccountId]struct{}
}

// NewEngine constructs a Voting Body engine with no-op defaults; call the
// SetX methods to wire in real dependencies before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		clock:       clock.System{},
		knownHouses: map[types.AccountId]struct{}{},
	}
}

func (e *Engine) SetState(state votingBodyState)      { e.state = state }
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
func (e *Engine) SetCongressQuery(q CongressQuery)  { e.congress = q }

// SetPolicy updates the runtime policy governing proposal admission.
func (e *Engine) SetPolicy(p Policy) {
	e.preVoteBond = p.PreVoteBond
	e.activeQueueBond = p.ActiveQueueBond
	e.preVoteDuration = p.PreVoteDuration
	e.voteDuration = p.VoteDuration
	e.startTime = p.StartTime
	e.endTime = p.EndTime
	e.communityFund = p.CommunityFund
	e.knownHouses = make(map[types.AccountId]struct{}, len(p.KnownHouses))
	for _, h := range p.KnownHouses {
		e.knownHouses[h] = struct{}{}
	}
}

func (e *Engine) now() int64 { return e.clock.NowMillis() }

func (e *Engine) audit(event string, id types.ProposalId, actor types.AccountId, detail string) {
	if e.state == nil {
		return
	}
	_ = e.state.AppendAudit(&AuditRecord{
		Timestamp:  e.now(),
		Event:      event,
		ProposalId: id,
		Actor:      actor,
		Details:    detail,
	})
}

// quorumKindFor maps a proposal kind to the quorum/threshold pair spec
// §4.1 assigns it: TextSuper and Dissolve use Near Supermajority
// Consent, everything else uses Near Consent.
func quorumKindFor(kind ProposalKind) govcore.QuorumKind {
	if kind == KindTextSuper || kind == KindDissolve {
		return govcore.NearSupermajorityConsent
	}
	return govcore.NearConsent
}

// CreateProposal submits a new proposal. The caller must already be
// attested human by the identity registry (modeled by requiring a valid
// Proof be supplied by the caller-facing RPC layer before this is
// invoked; the engine itself re-derives the attestation here to keep the
// dependency explicit).
func (e *Engine) CreateProposal(caller types.AccountId, kind ProposalKind, payload Payload, description string, attachedBond types.Amount) (types.ProposalId, error) {
	if _, err := e.identity.IsHumanCall(caller); err != nil {
		return 0, taxonomy.ErrNotHuman.With(err.Error())
	}
	now := e.now()
	if now < e.startTime || now >= e.endTime {
		return 0, taxonomy.ErrNotStarted
	}
	if attachedBond.Cmp(e.preVoteBond) < 0 {
		return 0, taxonomy.ErrInsufficientBond
	}
	if kind == KindFunctionCall {
		if _, known := e.knownHouses[payload.Receiver]; known {
			return 0, taxonomy.ErrCongressCallForbidden
		}
	}

	id, err := e.state.NextProposalId()
	if err != nil {
		return 0, err
	}

	status := StatusPreVote
	startTime := int64(0)
	supporters := map[types.AccountId]struct{}{}
	if attachedBond.Cmp(e.activeQueueBond) >= 0 {
		status = StatusInProgress
		startTime = now
	}

	p := &Proposal{
		Id:             id,
		Proposer:       caller,
		Kind:           kind,
		Payload:        payload,
		Description:    description,
		Status:         status,
		SubmissionTime: now,
		StartTime:      startTime,
		BondOwner:      caller,
		Bond:           attachedBond,
		Supporters:     supporters,
		Votes:          map[types.AccountId]Vote{},
	}
	if err := e.state.PutProposal(p); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.ProposalCreated("votingbody", id, caller, string(kind)))
	e.audit("created", id, caller, string(kind))
	return id, nil
}

func (e *Engine) promote(p *Proposal) {
	p.Status = StatusInProgress
	p.StartTime = e.now()
	p.Supporters = map[types.AccountId]struct{}{}
}

// SupportProposal records the caller's support for a PreVote proposal,
// promoting it once pre_vote_support distinct supporters are reached.
func (e *Engine) SupportProposal(caller types.AccountId, id types.ProposalId, preVoteSupport int, lockDuration time.Duration) error {
	if _, err := e.identity.IsHumanCallLock(caller, lockDuration); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if p.Status != StatusPreVote {
		return taxonomy.ErrWrongStatus
	}
	if _, already := p.Supporters[caller]; already {
		return nil
	}
	p.Supporters[caller] = struct{}{}
	if len(p.Supporters) >= preVoteSupport {
		e.promote(p)
	}
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.audit("supported", id, caller, "")
	return nil
}

// SupportProposalByCongress immediately promotes a PreVote proposal when
// the caller is a member of a known Congress house.
func (e *Engine) SupportProposalByCongress(caller types.AccountId, id types.ProposalId, dao types.AccountId) error {
	if !e.congress.IsHouse(dao) {
		return taxonomy.ErrMissingPermission
	}
	if !e.congress.IsMember(dao, caller) {
		return taxonomy.ErrNotMember
	}
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if p.Status != StatusPreVote {
		return taxonomy.ErrWrongStatus
	}
	e.promote(p)
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.audit("supported_by_congress", id, caller, string(dao))
	return nil
}

// TopUp adds to a proposal's bond, promoting it from PreVote if the new
// total reaches the active-queue bond.
func (e *Engine) TopUp(caller types.AccountId, id types.ProposalId, amount types.Amount) error {
	if _, err := e.identity.IsHumanCall(caller); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	total, err := p.Bond.Add(amount)
	if err != nil {
		return fmt.Errorf("votingbody: top_up: %w", err)
	}
	p.Bond = total
	if p.Status == StatusPreVote && total.Cmp(e.activeQueueBond) >= 0 {
		e.promote(p)
	}
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.audit("topped_up", id, caller, amount.String())
	return nil
}

// Vote records or replaces the caller's ballot on an InProgress proposal.
func (e *Engine) Vote(caller types.AccountId, id types.ProposalId, choice VoteChoice, lockDuration time.Duration) error {
	if _, err := e.identity.IsHumanCallLock(caller, lockDuration); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if p.Status != StatusInProgress {
		return taxonomy.ErrWrongStatus
	}
	now := e.now()
	if now >= p.StartTime+e.voteDuration.Milliseconds() {
		return taxonomy.ErrVotingClosed
	}

	if prior, voted := p.Votes[caller]; voted {
		decrementTally(p, prior.Choice)
	}
	p.Votes[caller] = Vote{Voter: caller, Choice: choice, Cast: now}
	incrementTally(p, choice)

	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.emitter.Emit(events.VoteCast("votingbody", id, caller, string(choice)))
	e.audit("voted", id, caller, string(choice))
	return nil
}

func incrementTally(p *Proposal, choice VoteChoice) {
	switch choice {
	case VoteApprove:
		p.ApproveCount++
	case VoteReject:
		p.RejectCount++
	case VoteSpam:
		p.SpamCount++
	}
}

func decrementTally(p *Proposal, choice VoteChoice) {
	switch choice {
	case VoteApprove:
		if p.ApproveCount > 0 {
			p.ApproveCount--
		}
	case VoteReject:
		if p.RejectCount > 0 {
			p.RejectCount--
		}
	case VoteSpam:
		if p.SpamCount > 0 {
			p.SpamCount--
		}
	}
}

// Classify resolves the terminal status of an InProgress proposal whose
// voting window has closed, given the Voting Body's current member-count
// snapshot. It does not mutate state; Execute calls it and persists the
// result.
func (e *Engine) Classify(p *Proposal, bodySize uint64) ProposalStatus {
	status := govcore.Classify(quorumKindFor(p.Kind), p.ApproveCount, p.RejectCount, p.SpamCount, bodySize)
	switch status {
	case govcore.StatusApproved:
		return StatusApproved
	case govcore.StatusSpam:
		return StatusSpam
	default:
		return StatusRejected
	}
}

// Execute finalizes an InProgress proposal whose voting window has
// closed, or re-executes a previously Failed one, per spec §4.1. caller
// is the account that triggers classification of a Spam proposal and
// receives the slash reward for doing so.
func (e *Engine) Execute(caller types.AccountId, id types.ProposalId, bodySize uint64) (*taxonomy.ExecutionOutcome, error) {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, taxonomy.ErrProposalNotFound
	}
	now := e.now()

	if p.Status == StatusInProgress {
		if now < p.StartTime+e.voteDuration.Milliseconds() {
			return nil, taxonomy.ErrVotingClosed
		}
		p.Status = e.Classify(p, bodySize)
		e.emitter.Emit(events.ProposalFinalized("votingbody", id, string(p.Status)))
	}

	switch p.Status {
	case StatusApproved:
		if p.ExecutionInFlight {
			return nil, taxonomy.ErrWrongStatus
		}
		return e.executeApproved(p)
	case StatusFailed:
		if p.ExecutionInFlight {
			return nil, taxonomy.ErrWrongStatus
		}
		return e.executeApproved(p)
	case StatusRejected:
		e.refundBond(p)
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.audit("rejected", id, "", "")
		return taxonomy.Success(), nil
	case StatusSpam:
		e.slashBond(p, caller)
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.audit("spam_slashed", id, caller, "")
		return taxonomy.Success(), nil
	default:
		return nil, taxonomy.ErrWrongStatus
	}
}

// refundBond schedules the full bond's return to its owner through the
// host's promise scheduler, satisfying spec §4.5's
// bond_in = bond_refunded + community_fund_out + slash_reward_out
// invariant for the Approved/Rejected paths. A zero bond (already
// refunded on a prior Execute retry) is a no-op.
func (e *Engine) refundBond(p *Proposal) {
	payout := govcore.Release(govcore.Bond{Owner: p.BondOwner, Amount: p.Bond})
	if payout.IsZero() {
		return
	}
	e.promises.Schedule(host.Action{
		Method:  "transfer",
		Target:  p.BondOwner.String(),
		Deposit: payout.String(),
	})
	p.Bond = types.ZeroAmount()
}

// slashBond splits the bond between caller (the slash reward) and the
// community fund via scheduled transfers, satisfying the same
// conservation invariant as refundBond for the Spam/slashed-pre-vote
// paths.
func (e *Engine) slashBond(p *Proposal, caller types.AccountId) {
	toSlasher, toFund := govcore.Slash(govcore.Bond{Owner: p.BondOwner, Amount: p.Bond})
	if !toSlasher.IsZero() {
		e.promises.Schedule(host.Action{
			Method:  "transfer",
			Target:  caller.String(),
			Deposit: toSlasher.String(),
		})
	}
	if !toFund.IsZero() {
		e.promises.Schedule(host.Action{
			Method:  "transfer",
			Target:  e.communityFund.String(),
			Deposit: toFund.String(),
		})
	}
	p.Bond = types.ZeroAmount()
}

func (e *Engine) executeApproved(p *Proposal) (*taxonomy.ExecutionOutcome, error) {
	e.refundBond(p)

	if p.Kind != KindFunctionCall && p.Kind != KindVeto && p.Kind != KindDismiss && p.Kind != KindDissolve && p.Kind != KindApproveBudget {
		// Text, TextSuper, UpdateBonds, UpdateVoteDuration have no
		// external call to schedule; apply config changes and release
		// the bond synchronously.
		e.applyConfigChange(p)
		p.Status = StatusExecuted
		p.ExecutedAt = e.now()
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.ProposalExecuted("votingbody", p.Id, true))
		e.audit("executed", p.Id, "", string(p.Kind))
		return taxonomy.Success(), nil
	}

	p.ExecutionInFlight = true
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	promiseID := e.promises.Schedule(host.Action{
		Method: string(p.Kind),
		Target: p.Payload.Receiver.String(),
	})
	_ = promiseID
	// Whoever drives the host runtime must call ExecuteCallback with the
	// resolution once the scheduled action completes; cmd/govd does not
	// call Execute or ExecuteCallback.
	return taxonomy.Success(), nil
}

// ExecuteCallback resolves a previously scheduled execution, moving the
// proposal to Executed on success or Failed otherwise, per spec §4.1's
// failure semantics: state already applied (bond refund) is preserved
// and a Failed proposal may be re-executed.
func (e *Engine) ExecuteCallback(id types.ProposalId, ok bool) (*taxonomy.ExecutionOutcome, error) {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, taxonomy.ErrProposalNotFound
	}
	p.ExecutionInFlight = false
	if ok {
		p.Status = StatusExecuted
		p.ExecutedAt = e.now()
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.ProposalExecuted("votingbody", id, true))
		e.audit("executed", id, "", "")
		return taxonomy.Success(), nil
	}
	p.Status = StatusFailed
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ProposalExecuted("votingbody", id, false))
	e.audit("execution_failed", id, "", "")
	return taxonomy.Failure(taxonomy.ErrExternalCallFailed), nil
}

// applyConfigChange handles the Text/TextSuper (no-op besides status) and
// UpdateBonds/UpdateVoteDuration (mutate this engine's own policy)
// kinds.
func (e *Engine) applyConfigChange(p *Proposal) {
	switch p.Kind {
	case KindUpdateBonds:
		if p.Payload.NewPreVoteBond != nil {
			e.preVoteBond = *p.Payload.NewPreVoteBond
		}
		if p.Payload.NewActiveQueueBond != nil {
			e.activeQueueBond = *p.Payload.NewActiveQueueBond
		}
	case KindUpdateVoteDuration:
		if p.Payload.NewVoteDuration != nil {
			e.voteDuration = time.Duration(*p.Payload.NewVoteDuration) * time.Millisecond
		}
	}
}

// SlashPreVoteProposal forfeits the bond of a still-PreVote proposal past
// its pre_vote_duration, rewarding the caller and routing the remainder
// to the community fund.
func (e *Engine) SlashPreVoteProposal(caller types.AccountId, id types.ProposalId) error {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if p.Status != StatusPreVote {
		return taxonomy.ErrWrongStatus
	}
	if e.now() < p.SubmissionTime+e.preVoteDuration.Milliseconds() {
		return taxonomy.ErrPreVoteExpired
	}
	e.slashBond(p, caller)
	e.emitter.Emit(events.ProposalSlashed("votingbody", id, caller))
	e.audit("prevote_slashed", id, caller, "")
	// Proposal is deleted per spec §3's "Bonds are escrowed... until...
	// deleted" / §4.1's "deletes the proposal". We persist a tombstone
	// with StatusDeleted — a status Execute's switch never matches — in
	// place of a physical delete so ListSupporters/Proposal callers still
	// get a clear "gone" signal, without letting Execute re-drive a
	// slashed proposal to Executed.
	p.Status = StatusDeleted
	return e.state.PutProposal(p)
}

// Proposal looks up a proposal by id.
func (e *Engine) Proposal(id types.ProposalId) (*Proposal, bool, error) {
	return e.state.GetProposal(id)
}

// ListSupporters returns the current PreVote supporter set.
func (e *Engine) ListSupporters(id types.ProposalId) ([]types.AccountId, error) {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, taxonomy.ErrProposalNotFound
	}
	out := make([]types.AccountId, 0, len(p.Supporters))
	for a := range p.Supporters {
		out = append(out, a)
	}
	return out, nil
}

// GC is a documentation anchor only: spec §9 notes there is no sweeper,
// since any stalled PreVote proposal remains slashable indefinitely via
// SlashPreVoteProposal. It performs no action.
func (e *Engine) GC() {}
