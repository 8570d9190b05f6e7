// Package congress implements the bounded-member deliberative body
// engine shared by the three Congress houses (House of Merit, Council
// of Advisors, Transparency Commission). A single generic Engine type is
// parameterized per house by HouseConfig; cmd/govd constructs three
// named instances.
package congress

import "govchain/core/types"

// Status is a Congress proposal's lifecycle state.
type Status string

const (
	StatusInProgress Status = "InProgress"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusVetoed     Status = "Vetoed"
	StatusExecuted   Status = "Executed"
	StatusFailed     Status = "Failed"
)

// Kind tags the payload union a Congress proposal carries.
type Kind string

const (
	KindFunctionCall             Kind = "FunctionCall"
	KindText                     Kind = "Text"
	KindFundingRequest           Kind = "FundingRequest"
	KindRecurrentFundingRequest  Kind = "RecurrentFundingRequest"
	KindDismissAndBan            Kind = "DismissAndBan"
)

// Permission is a capability a member's permission-set may contain,
// gating which proposal Kinds they may submit.
type Permission string

const (
	PermFunctionCall            Permission = "FunctionCall"
	PermText                    Permission = "Text"
	PermFundingRequest          Permission = "FundingRequest"
	PermRecurrentFundingRequest Permission = "RecurrentFundingRequest"
	PermDismissAndBan           Permission = "DismissAndBan"
)

func permissionForKind(k Kind) Permission {
	switch k {
	case KindFunctionCall:
		return PermFunctionCall
	case KindFundingRequest:
		return PermFundingRequest
	case KindRecurrentFundingRequest:
		return PermRecurrentFundingRequest
	case KindDismissAndBan:
		return PermDismissAndBan
	default:
		return PermText
	}
}

// Hook is a granted cross-house capability, looked up via hook_auth.
type Hook string

const (
	HookDismiss                       Hook = "Dismiss"
	HookDissolve                      Hook = "Dissolve"
	HookVetoAll                       Hook = "VetoAll"
	HookVetoBigOrRecurrentFundingReq  Hook = "VetoBigOrRecurrentFundingReq"
)

// FunctionCallAction mirrors the Voting Body's wire shape for a single
// scheduled call.
type FunctionCallAction struct {
	MethodName string
	Args       []byte
	Deposit    types.Amount
	Gas        uint64
}

// Payload carries whichever fields are relevant to a proposal's Kind.
type Payload struct {
	Receiver      types.AccountId
	Actions       []FunctionCallAction
	Text          string
	Amount        types.Amount // FundingRequest
	MonthlyAmount types.Amount // RecurrentFundingRequest
	EndTime       int64        // RecurrentFundingRequest
	Member        types.AccountId
	House         types.AccountId // DismissAndBan target house
}

// VoteChoice is a Congress ballot choice.
type VoteChoice string

const (
	VoteApprove VoteChoice = "Approve"
	VoteReject  VoteChoice = "Reject"
	VoteAbstain VoteChoice = "Abstain"
)

// Ballot records a member's vote and when it was cast.
type Ballot struct {
	Choice VoteChoice
	Cast   int64
}

// Proposal is a Congress house's persisted proposal record.
type Proposal struct {
	Id              types.ProposalId
	Proposer        types.AccountId
	Kind            Kind
	Payload         Payload
	Description     string
	Status          Status
	SubmissionTime  int64
	Votes           map[types.AccountId]Ballot
	RemainingMonths uint64 // for RecurrentFundingRequest budget accounting
	ExecutionInFlight bool
}

// AuditRecord is an append-only entry in a house's audit trail.
type AuditRecord struct {
	Sequence   uint64
	Timestamp  int64
	Event      string
	ProposalId types.ProposalId
	Actor      types.AccountId
	Details    string
}
