// Package elections implements the bonded, policy-gated, approval-style
// multi-seat tally engine used to choose Congress house representatives.
package elections

import "govchain/core/types"

// HouseType names which Congress house an election proposal seats
// representatives for.
type HouseType string

const (
	HouseOfMerit          HouseType = "HouseOfMerit"
	CouncilOfAdvisors     HouseType = "CouncilOfAdvisors"
	TransparencyCommission HouseType = "TransparencyCommission"
)

// Status is an election proposal's lifecycle state.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusCooldown Status = "Cooldown"
	StatusFinished Status = "Finished"
)

// Ballot records one voter's immutable choice of candidates.
type Ballot struct {
	Candidates []types.AccountId
}

// Proposal is the persisted election record.
type Proposal struct {
	Id                  types.ProposalId
	Typ                 HouseType
	Candidates          []types.AccountId
	Start               int64
	End                  int64
	Cooldown            int64 // milliseconds
	RefLink             string
	Quorum              uint64
	Seats               uint64
	MinCandidateSupport uint64
	FinishTime          int64

	Counts map[types.AccountId]uint64
	Ballots map[types.AccountId]Ballot
	VotersCount uint64
	Disqualified map[types.AccountId]struct{}
}

func newProposal() *Proposal {
	return &Proposal{
		Counts:       map[types.AccountId]uint64{},
		Ballots:      map[types.AccountId]Ballot{},
		Disqualified: map[types.AccountId]struct{}{},
	}
}
