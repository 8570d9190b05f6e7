package congress

import (
	"time"

	"govchain/core/clock"
	"govchain/core/events"
	"govchain/core/taxonomy"
	"govchain/core/types"
	"govchain/host"
)

// HouseConfig captures the per-house knobs spec §3's "Congress contract
// state" names: roster, permissions, hook grants, thresholds, timing,
// and budget.
type HouseConfig struct {
	Name                string
	Members             []types.AccountId
	Permissions         map[types.AccountId]map[Permission]bool
	HookAuth            map[types.AccountId]map[Hook]bool
	Threshold           uint64
	StartTime           int64
	EndTime             int64
	Cooldown            time.Duration
	VoteDuration        time.Duration
	MinVoteDuration     time.Duration
	BudgetCap           types.Amount
	BigFundingThreshold types.Amount
}

// Engine is a single Congress house's deliberative-body engine. cmd/govd
// constructs three instances, one per house, each wired with its own
// HouseConfig and cross-wired HookAuth.
type Engine struct {
	state    houseState
	emitter  events.Emitter
	clock    clock.Clock
	promises host.Promises

	name                string
	members             map[types.AccountId]struct{}
	memberOrder         []types.AccountId
	permissions         map[types.AccountId]map[Permission]bool
	hookAuth            map[types.AccountId]map[Hook]bool
	threshold           uint64
	startTime           int64
	endTime             int64
	cooldown            time.Duration
	voteDuration        time.Duration
	minVoteDuration     time.Duration
	budgetCap           types.Amount
	bigFundingThreshold types.Amount
	spentBudget         types.Amount
	dissolved           bool
}

// NewEngine constructs a Congress house engine with no-op defaults.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		clock:   clock.System{},
		members: map[types.AccountId]struct{}{},
	}
}

func (e *Engine) SetState(state houseState) { e.state = state }
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
func (e *Engine) SetPromises(p host.Promises) { e.promises = p }

// SetConfig installs the house's membership, permission, and hook
// configuration, replacing any previous configuration wholesale.
func (e *Engine) SetConfig(cfg HouseConfig) {
	e.name = cfg.Name
	e.members = make(map[types.AccountId]struct{}, len(cfg.Members))
	e.memberOrder = append([]types.AccountId(nil), cfg.Members...)
	for _, m := range cfg.Members {
		e.members[m] = struct{}{}
	}
	e.permissions = cfg.Permissions
	e.hookAuth = cfg.HookAuth
	e.threshold = cfg.Threshold
	e.startTime = cfg.StartTime
	e.endTime = cfg.EndTime
	e.cooldown = cfg.Cooldown
	e.voteDuration = cfg.VoteDuration
	e.minVoteDuration = cfg.MinVoteDuration
	e.budgetCap = cfg.BudgetCap
	e.bigFundingThreshold = cfg.BigFundingThreshold
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

// IsHouse reports whether dao equals this engine's own house identifier,
// satisfying votingbody.CongressQuery when one Engine per house is
// registered under its name.
func (e *Engine) IsHouse(dao types.AccountId) bool { return string(dao) == e.name }

// IsMember reports whether caller sits on this house's roster,
// satisfying votingbody.CongressQuery.
func (e *Engine) IsMember(dao, caller types.AccountId) bool {
	if !e.IsHouse(dao) {
		return false
	}
	_, ok := e.members[caller]
	return ok
}

func (e *Engine) memberCount() uint64 { return uint64(len(e.members)) }

// CreateProposal submits a new proposal. The caller must be a member
// holding the permission class the Kind requires.
func (e *Engine) CreateProposal(caller types.AccountId, kind Kind, payload Payload, description string) (types.ProposalId, error) {
	if e.dissolved {
		return 0, taxonomy.ErrDissolved
	}
	if _, ok := e.members[caller]; !ok {
		return 0, taxonomy.ErrNotMember
	}
	now := e.now()
	if now < e.startTime || now >= e.endTime {
		return 0, taxonomy.ErrNotStarted
	}
	required := permissionForKind(kind)
	if !e.permissions[caller][required] {
		return 0, taxonomy.ErrMissingPermission
	}

	id, err := e.state.NextProposalId()
	if err != nil {
		return 0, err
	}
	p := &Proposal{
		Id:             id,
		Proposer:       caller,
		Kind:           kind,
		Payload:        payload,
		Description:    description,
		Status:         StatusInProgress,
		SubmissionTime: now,
		Votes:          map[types.AccountId]Ballot{},
	}
	if kind == KindRecurrentFundingRequest {
		monthMs := int64(30 * 24 * time.Hour / time.Millisecond)
		remaining := uint64(0)
		if payload.EndTime > now {
			remaining = uint64((payload.EndTime - now) / monthMs)
			if remaining == 0 {
				remaining = 1
			}
		}
		p.RemainingMonths = remaining
	}
	if err := e.state.PutProposal(p); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.ProposalCreated("congress."+e.name, id, caller, string(kind)))
	e.audit("created", id, caller, string(kind))
	return id, nil
}

// decided reports whether approval is already mathematically settled:
// approve has already reached threshold (will pass), or enough
// reject+abstain votes exist that threshold can never be reached.
func (e *Engine) decided(p *Proposal) bool {
	var approve, decided uint64
	for _, b := range p.Votes {
		decided++
		if b.Choice == VoteApprove {
			approve++
		}
	}
	if approve >= e.threshold {
		return true
	}
	rejectOrAbstain := decided - approve
	return rejectOrAbstain > e.memberCount()-e.threshold
}

func (e *Engine) allMembersVoted(p *Proposal) bool {
	return uint64(len(p.Votes)) >= e.memberCount()
}

// closeIfTerminated resolves an InProgress proposal into Approved or
// Rejected once any of spec §4.2's three termination conditions holds.
func (e *Engine) closeIfTerminated(p *Proposal) {
	if p.Status != StatusInProgress {
		return
	}
	now := e.now()
	terminated := e.allMembersVoted(p) ||
		p.SubmissionTime+e.voteDuration.Milliseconds() <= now ||
		(p.SubmissionTime+e.minVoteDuration.Milliseconds() <= now && e.decided(p))
	if !terminated {
		return
	}
	var approve uint64
	for _, b := range p.Votes {
		if b.Choice == VoteApprove {
			approve++
		}
	}
	if approve >= e.threshold {
		p.Status = StatusApproved
	} else {
		p.Status = StatusRejected
	}
	e.emitter.Emit(events.ProposalFinalized("congress."+e.name, p.Id, string(p.Status)))
}

// Vote records a member's ballot, closing the proposal if the vote
// causes a termination condition to become true.
func (e *Engine) Vote(caller types.AccountId, id types.ProposalId, choice VoteChoice) error {
	if _, ok := e.members[caller]; !ok {
		return taxonomy.ErrNotMember
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
	if _, voted := p.Votes[caller]; voted {
		return taxonomy.ErrAlreadyVoted
	}
	p.Votes[caller] = Ballot{Choice: choice, Cast: e.now()}
	e.closeIfTerminated(p)
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.emitter.Emit(events.VoteCast("congress."+e.name, id, caller, string(choice)))
	e.audit("voted", id, caller, string(choice))
	return nil
}

// VetoHook lets a caller holding VetoAll (any kind) or
// VetoBigOrRecurrentFundingReq (big/recurrent funding only) veto a
// proposal at any time, during voting included, until cooldown has
// elapsed after the vote duration ends.
func (e *Engine) VetoHook(caller types.AccountId, id types.ProposalId) error {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	grants := e.hookAuth[caller]
	authorized := grants[HookVetoAll]
	if !authorized && grants[HookVetoBigOrRecurrentFundingReq] {
		if p.Kind == KindRecurrentFundingRequest {
			authorized = true
		} else if p.Kind == KindFundingRequest && p.Payload.Amount.Cmp(e.bigFundingThreshold) >= 0 {
			authorized = true
		}
	}
	if !authorized {
		return taxonomy.ErrUnauthorizedHook
	}
	if e.now() > p.SubmissionTime+e.voteDuration.Milliseconds()+e.cooldown.Milliseconds() {
		return taxonomy.ErrCooldownElapsed
	}
	p.Status = StatusVetoed
	if err := e.state.PutProposal(p); err != nil {
		return err
	}
	e.audit("vetoed", id, caller, "")
	return nil
}

// DismissHook removes member from the roster, callable by any account
// holding the Dismiss grant.
func (e *Engine) DismissHook(caller, member types.AccountId) error {
	if !e.hookAuth[caller][HookDismiss] {
		return taxonomy.ErrUnauthorizedHook
	}
	if _, ok := e.members[member]; !ok {
		return taxonomy.ErrNotMember
	}
	delete(e.members, member)
	for i, m := range e.memberOrder {
		if m == member {
			e.memberOrder = append(e.memberOrder[:i], e.memberOrder[i+1:]...)
			break
		}
	}
	e.audit("dismissed", 0, caller, member.String())
	return nil
}

// DissolveHook sets dissolved=true; every further mutating operation on
// this house fails afterward.
func (e *Engine) DissolveHook(caller types.AccountId) error {
	if !e.hookAuth[caller][HookDissolve] {
		return taxonomy.ErrUnauthorizedHook
	}
	e.dissolved = true
	e.audit("dissolved", 0, caller, "")
	return nil
}

// Execute runs an Approved or previously Failed proposal once cooldown
// and min_vote_duration have elapsed, pre-checking the budget invariant
// for funding kinds. Text resolves synchronously; FunctionCall,
// FundingRequest, and RecurrentFundingRequest schedule the native
// transfer/call through host.Promises and leave Status as Approved with
// ExecutionInFlight set until ExecuteCallback resolves it to Executed or
// Failed, per spec §4.2. DismissAndBan's two cross-engine calls are
// injected as synchronous callbacks (identitySetGovBan, dismissOnHouse)
// rather than routed through the promise scheduler, since both targets
// live in this same process; either one failing moves the proposal to
// Failed immediately instead of leaving it in flight.
func (e *Engine) Execute(id types.ProposalId, identitySetGovBan func(types.AccountId) error, dismissOnHouse func(member types.AccountId) error) (*taxonomy.ExecutionOutcome, error) {
	p, found, err := e.state.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, taxonomy.ErrProposalNotFound
	}
	if p.Status == StatusInProgress {
		e.closeIfTerminated(p)
		if p.Status != StatusInProgress {
			if err := e.state.PutProposal(p); err != nil {
				return nil, err
			}
		}
	}
	if p.Status != StatusApproved && p.Status != StatusFailed {
		return nil, taxonomy.ErrWrongStatus
	}
	if p.ExecutionInFlight {
		return nil, taxonomy.ErrWrongStatus
	}
	now := e.now()
	if now < p.SubmissionTime+e.cooldown.Milliseconds() {
		return nil, taxonomy.ErrCooldownActive
	}
	if now < p.SubmissionTime+e.minVoteDuration.Milliseconds() {
		return nil, taxonomy.ErrVotingClosed
	}

	var scheduledDeposit types.Amount
	if p.Kind == KindFundingRequest || p.Kind == KindRecurrentFundingRequest {
		amount := p.Payload.Amount
		months := uint64(1)
		if p.Kind == KindRecurrentFundingRequest {
			amount = p.Payload.MonthlyAmount
			months = p.RemainingMonths
			if p.Payload.EndTime <= now {
				return nil, taxonomy.ErrEnded
			}
		}
		delta, err := amount.MulUint64(months)
		if err != nil {
			return taxonomy.Failure(taxonomy.ErrInvariantViolated.With(err.Error())), nil
		}
		newSpent, err := e.spentBudget.Add(delta)
		if err != nil || newSpent.Cmp(e.budgetCap) > 0 {
			// Non-fatal executor error: status is left unchanged so the
			// proposal can be retried once budget headroom frees up.
			return nil, taxonomy.ErrBudgetOverflow
		}
		e.spentBudget = newSpent
		scheduledDeposit = delta
	}

	switch p.Kind {
	case KindText:
		p.Status = StatusExecuted
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.ProposalExecuted("congress."+e.name, id, true))
		e.audit("executed", id, "", string(p.Kind))
		return taxonomy.Success(), nil

	case KindDismissAndBan:
		if identitySetGovBan != nil {
			if err := identitySetGovBan(p.Payload.Member); err != nil {
				return e.failExecution(p, err)
			}
		}
		if dismissOnHouse != nil {
			if err := dismissOnHouse(p.Payload.Member); err != nil {
				return e.failExecution(p, err)
			}
		}
		p.Status = StatusExecuted
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.ProposalExecuted("congress."+e.name, id, true))
		e.audit("executed", id, "", string(p.Kind))
		return taxonomy.Success(), nil

	default: // FunctionCall, FundingRequest, RecurrentFundingRequest
		p.ExecutionInFlight = true
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		promiseID := e.promises.Schedule(host.Action{
			Method:  string(p.Kind),
			Target:  p.Payload.Receiver.String(),
			Deposit: scheduledDeposit.String(),
		})
		_ = promiseID
		// Whoever drives the host runtime must call ExecuteCallback with
		// the resolution once the scheduled action completes; cmd/govd
		// does not call Execute or ExecuteCallback.
		return taxonomy.Success(), nil
	}
}

// failExecution records an execution failure per spec §4.2: the
// proposal moves to Failed (from which Execute may be retried) rather
// than returning a plain Go error, since ExternalCallFailed is an
// Execution-category outcome that must persist the state transition.
func (e *Engine) failExecution(p *Proposal, cause error) (*taxonomy.ExecutionOutcome, error) {
	p.Status = StatusFailed
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ProposalExecuted("congress."+e.name, p.Id, false))
	e.audit("execution_failed", p.Id, "", cause.Error())
	return taxonomy.Failure(taxonomy.ErrExternalCallFailed.With(cause.Error())), nil
}

// ExecuteCallback resolves a FunctionCall/FundingRequest/
// RecurrentFundingRequest proposal previously scheduled through
// host.Promises, moving it to Executed on success or Failed otherwise.
func (e *Engine) ExecuteCallback(id types.ProposalId, ok bool, callErr error) (*taxonomy.ExecutionOutcome, error) {
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
		if err := e.state.PutProposal(p); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.ProposalExecuted("congress."+e.name, id, true))
		e.audit("executed", id, "", string(p.Kind))
		return taxonomy.Success(), nil
	}
	p.Status = StatusFailed
	if err := e.state.PutProposal(p); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ProposalExecuted("congress."+e.name, id, false))
	detail := ""
	if callErr != nil {
		detail = callErr.Error()
	}
	e.audit("execution_failed", id, "", detail)
	return taxonomy.Failure(taxonomy.ErrExternalCallFailed), nil
}

// Proposal looks up a proposal by id.
func (e *Engine) Proposal(id types.ProposalId) (*Proposal, bool, error) {
	return e.state.GetProposal(id)
}
