package nominations

import (
	"govchain/core/clock"
	"govchain/core/events"
	"govchain/core/taxonomy"
	"govchain/core/types"
	"govchain/identity"
)

// CredentialChecker gates self_nominate on holding an "OG" credential,
// a narrower check than general humanity verification.
type CredentialChecker interface {
	HasOGCredential(account types.AccountId) bool
}

// Engine is the Nominations engine.
type Engine struct {
	state    nominationsState
	emitter  events.Emitter
	clock    clock.Clock
	identity identity.Registry
	creds    CredentialChecker

	startTime int64
	endTime   int64
}

// NewEngine constructs a Nominations engine with no-op defaults.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		clock:   clock.System{},
	}
}

func (e *Engine) SetState(state nominationsState) { e.state = state }
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
func (e *Engine) SetIdentity(reg identity.Registry)     { e.identity = reg }
func (e *Engine) SetCredentialChecker(c CredentialChecker) { e.creds = c }

// SetWindow configures the nomination window.
func (e *Engine) SetWindow(start, end int64) {
	e.startTime = start
	e.endTime = end
}

func (e *Engine) now() int64 { return e.clock.NowMillis() }

func (e *Engine) withinWindow() bool {
	now := e.now()
	return now >= e.startTime && now < e.endTime
}

// SelfNominate registers caller as a candidate for house, once per
// account across every house, only while the window is open.
func (e *Engine) SelfNominate(caller types.AccountId, house House, comment, link string) error {
	if !e.withinWindow() {
		return taxonomy.ErrNotStarted
	}
	if e.creds != nil && !e.creds.HasOGCredential(caller) {
		return taxonomy.ErrMissingPermission
	}
	if _, found, err := e.state.GetNomination(caller); err != nil {
		return err
	} else if found {
		return taxonomy.ErrDoubleSupport
	}
	n := &Nomination{
		Candidate: caller,
		House:     house,
		Comment:   comment,
		Link:      link,
		Upvotes:   map[types.AccountId]struct{}{},
		CreatedAt: e.now(),
	}
	if err := e.state.PutNomination(n); err != nil {
		return err
	}
	e.emitter.Emit(events.NominationSubmitted(string(house), caller))
	return nil
}

// SelfRevoke removes caller's own nomination while the window is open.
func (e *Engine) SelfRevoke(caller types.AccountId) error {
	if !e.withinWindow() {
		return taxonomy.ErrEnded
	}
	if _, found, err := e.state.GetNomination(caller); err != nil {
		return err
	} else if !found {
		return taxonomy.ErrProposalNotFound
	}
	return e.state.DeleteNomination(caller)
}

func (e *Engine) requireHuman(caller types.AccountId) error {
	if e.identity == nil {
		return nil
	}
	if _, err := e.identity.IsHumanCall(caller); err != nil {
		return taxonomy.ErrNotHuman.With(err.Error())
	}
	return nil
}

// Upvote records caller's upvote for candidate, at most one per
// (voter, candidate).
func (e *Engine) Upvote(caller, candidate types.AccountId) error {
	if err := e.requireHuman(caller); err != nil {
		return err
	}
	n, found, err := e.state.GetNomination(candidate)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if _, already := n.Upvotes[caller]; already {
		return taxonomy.ErrAlreadyVoted
	}
	n.Upvotes[caller] = struct{}{}
	if err := e.state.PutNomination(n); err != nil {
		return err
	}
	e.emitter.Emit(events.NominationUpvoted(string(n.House), candidate, caller, true))
	return nil
}

// RemoveUpvote is the inverse of Upvote.
func (e *Engine) RemoveUpvote(caller, candidate types.AccountId) error {
	if err := e.requireHuman(caller); err != nil {
		return err
	}
	n, found, err := e.state.GetNomination(candidate)
	if err != nil {
		return err
	}
	if !found {
		return taxonomy.ErrProposalNotFound
	}
	if _, present := n.Upvotes[caller]; !present {
		return nil
	}
	delete(n.Upvotes, caller)
	if err := e.state.PutNomination(n); err != nil {
		return err
	}
	e.emitter.Emit(events.NominationUpvoted(string(n.House), candidate, caller, false))
	return nil
}

// Comment emits a comment event for off-chain indexing without storing
// the comment body on-chain.
func (e *Engine) Comment(caller, candidate types.AccountId, comment string) error {
	if err := e.requireHuman(caller); err != nil {
		return err
	}
	if _, found, err := e.state.GetNomination(candidate); err != nil {
		return err
	} else if !found {
		return taxonomy.ErrProposalNotFound
	}
	e.emitter.Emit(events.CommentPosted(candidate, caller, comment))
	return nil
}

// NominationsByHouse returns every (candidate, upvote count) pair
// currently nominated to house.
func (e *Engine) NominationsByHouse(house House) ([]CandidateUpvotes, error) {
	list, err := e.state.ListNominations(house)
	if err != nil {
		return nil, err
	}
	out := make([]CandidateUpvotes, 0, len(list))
	for _, n := range list {
		out = append(out, CandidateUpvotes{Candidate: n.Candidate, Upvotes: n.UpvoteCount()})
	}
	return out, nil
}

// CandidateUpvotes is one row of the nominations(house) query result.
type CandidateUpvotes struct {
	Candidate types.AccountId
	Upvotes   uint64
}
