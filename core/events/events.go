// Package events defines the Emitter contract every engine emits state
// transitions through, plus the typed attribute builders for each
// lifecycle event the governance suite raises.
package events

import (
	"fmt"

	"govchain/core/types"
)

// Emitter broadcasts events to downstream subscribers (indexers, the
// query HTTP surface, audit tooling).
type Emitter interface {
	Emit(types.Event)
}

// NoopEmitter discards every event. Engines default to it when no emitter
// is configured so tests never need to stub one out.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(types.Event) {}

// ProposalCreated is raised by the Voting Body, Congress and Elections
// engines whenever a new proposal is created, whatever its initial
// status.
func ProposalCreated(engine string, id types.ProposalId, proposer types.AccountId, kind string) types.Event {
	return types.Event{
		Type: "proposal.created",
		Attributes: map[string]string{
			"engine":   engine,
			"id":       fmt.Sprintf("%d", id),
			"proposer": proposer.String(),
			"kind":     kind,
		},
	}
}

// VoteCast is raised whenever a ballot is recorded.
func VoteCast(engine string, id types.ProposalId, voter types.AccountId, choice string) types.Event {
	return types.Event{
		Type: "proposal.vote_cast",
		Attributes: map[string]string{
			"engine": engine,
			"id":     fmt.Sprintf("%d", id),
			"voter":  voter.String(),
			"choice": choice,
		},
	}
}

// ProposalFinalized is raised when a proposal leaves the voting window
// and is classified into a terminal or timelocked status.
func ProposalFinalized(engine string, id types.ProposalId, status string) types.Event {
	return types.Event{
		Type: "proposal.finalized",
		Attributes: map[string]string{
			"engine": engine,
			"id":     fmt.Sprintf("%d", id),
			"status": status,
		},
	}
}

// ProposalExecuted is raised once Execute resolves, successfully or not.
func ProposalExecuted(engine string, id types.ProposalId, ok bool) types.Event {
	return types.Event{
		Type: "proposal.executed",
		Attributes: map[string]string{
			"engine": engine,
			"id":     fmt.Sprintf("%d", id),
			"ok":     fmt.Sprintf("%t", ok),
		},
	}
}

// ProposalSlashed is raised when a stalled PreVote proposal's bond is
// forfeited.
func ProposalSlashed(engine string, id types.ProposalId, slasher types.AccountId) types.Event {
	return types.Event{
		Type: "proposal.slashed",
		Attributes: map[string]string{
			"engine":  engine,
			"id":      fmt.Sprintf("%d", id),
			"slasher": slasher.String(),
		},
	}
}

// NominationSubmitted is raised by the nominations engine.
func NominationSubmitted(house string, candidate types.AccountId) types.Event {
	return types.Event{
		Type: "nomination.submitted",
		Attributes: map[string]string{
			"house":     house,
			"candidate": candidate.String(),
		},
	}
}

// CommentPosted is raised by the nominations engine's comment method;
// the comment body is carried only in the event, never persisted.
func CommentPosted(candidate, author types.AccountId, comment string) types.Event {
	return types.Event{
		Type: "nomination.comment",
		Attributes: map[string]string{
			"candidate": candidate.String(),
			"author":    author.String(),
			"comment":   comment,
		},
	}
}

// NominationUpvoted is raised on every upvote/remove-upvote transition.
func NominationUpvoted(house string, candidate, voter types.AccountId, added bool) types.Event {
	return types.Event{
		Type: "nomination.upvoted",
		Attributes: map[string]string{
			"house":     house,
			"candidate": candidate.String(),
			"voter":     voter.String(),
			"added":     fmt.Sprintf("%t", added),
		},
	}
}
