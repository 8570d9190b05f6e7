// Package nominations implements the house-scoped self-nomination
// engine: candidates self-register and self-revoke within a single
// configured time window, and the community upvotes and comments.
// Upvotes, upvote removals and comments are not limited to that window.
package nominations

import "govchain/core/types"

// House names the three Congress houses a candidate may be nominated
// to; its values match elections.HouseType. The congress package itself
// identifies houses by configured name, not by this type.
type House string

const (
	HouseOfMerit           House = "HouseOfMerit"
	CouncilOfAdvisors      House = "CouncilOfAdvisors"
	TransparencyCommission House = "TransparencyCommission"
)

// Nomination is a single candidate's self-nomination record.
type Nomination struct {
	Candidate types.AccountId
	House     House
	Comment   string
	Link      string
	Upvotes   map[types.AccountId]struct{}
	CreatedAt int64
}

// UpvoteCount returns the number of distinct upvotes recorded.
func (n *Nomination) UpvoteCount() uint64 { return uint64(len(n.Upvotes)) }
