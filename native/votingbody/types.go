// Package votingbody implements the Voting Body engine: the two-queue
// proposal pipeline open to the whole human-verified population.
package votingbody

import "govchain/core/types"

// ProposalStatus is the Voting Body proposal's lifecycle state.
type ProposalStatus string

const (
	StatusPreVote    ProposalStatus = "PreVote"
	StatusInProgress ProposalStatus = "InProgress"
	StatusApproved   ProposalStatus = "Approved"
	StatusRejected   ProposalStatus = "Rejected"
	StatusSpam       ProposalStatus = "Spam"
	StatusExecuted   ProposalStatus = "Executed"
	StatusFailed     ProposalStatus = "Failed"
	// StatusDeleted is terminal and never re-enters Execute: it marks a
	// pre-vote proposal forfeited by SlashPreVoteProposal, distinct from
	// StatusFailed (which Execute retries on every call).
	StatusDeleted ProposalStatus = "Deleted"
)

// ProposalKind tags the payload union a Voting Body proposal carries.
type ProposalKind string

const (
	KindDismiss            ProposalKind = "Dismiss"
	KindDissolve           ProposalKind = "Dissolve"
	KindVeto               ProposalKind = "Veto"
	KindApproveBudget      ProposalKind = "ApproveBudget"
	KindText               ProposalKind = "Text"
	KindTextSuper          ProposalKind = "TextSuper"
	KindFunctionCall       ProposalKind = "FunctionCall"
	KindUpdateBonds        ProposalKind = "UpdateBonds"
	KindUpdateVoteDuration ProposalKind = "UpdateVoteDuration"
)

// FunctionCallAction mirrors spec §6's FunctionCall.actions[] wire shape.
type FunctionCallAction struct {
	MethodName string
	Args       []byte
	Deposit    types.Amount
	Gas        uint64
}

// Payload carries the fields relevant to whichever Kind a proposal was
// submitted as; unused fields are left zero.
type Payload struct {
	Dao      types.AccountId // Dismiss, Dissolve, Veto, ApproveBudget
	Member   types.AccountId // Dismiss
	PropId   types.ProposalId // Veto, ApproveBudget
	Receiver types.AccountId  // FunctionCall
	Actions  []FunctionCallAction
	Text     string

	// UpdateBonds / UpdateVoteDuration carry their new values in these
	// payload fields; on execution the engine's applyConfigChange writes
	// them into its own policy rather than calling an external target.
	// A nil field leaves that policy value unchanged.
	NewPreVoteBond     *types.Amount
	NewActiveQueueBond *types.Amount
	NewVoteDuration    *int64 // milliseconds
}

// VoteChoice is a Voting Body ballot choice.
type VoteChoice string

const (
	VoteApprove VoteChoice = "Approve"
	VoteReject  VoteChoice = "Reject"
	VoteSpam    VoteChoice = "Spam"
)

// Vote records one voter's current ballot on a proposal; only the latest
// choice is kept, per spec §4.1's "last vote wins".
type Vote struct {
	Voter  types.AccountId
	Choice VoteChoice
	Cast   int64
}

// Proposal is the Voting Body's persisted proposal record.
type Proposal struct {
	Id             types.ProposalId
	Proposer       types.AccountId
	Kind           ProposalKind
	Payload        Payload
	Description    string
	Status         ProposalStatus
	SubmissionTime int64
	StartTime      int64
	BondOwner      types.AccountId
	Bond           types.Amount
	Supporters     map[types.AccountId]struct{}
	Votes          map[types.AccountId]Vote
	ApproveCount   uint64
	RejectCount    uint64
	SpamCount      uint64
	ExecutedAt     int64
	// ExecutionInFlight marks that a promise was scheduled for this
	// proposal's execution and its callback has not yet resolved, per
	// spec §5 rule 1: a second execute() call must be rejected while
	// this is set.
	ExecutionInFlight bool
}

// AuditRecord is an append-only entry in the Voting Body's audit trail.
type AuditRecord struct {
	Sequence   uint64
	Timestamp  int64
	Event      string
	ProposalId types.ProposalId
	Actor      types.AccountId
	Details    string
}
