package votingbody

import (
	"encoding/json"
	"fmt"

	"govchain/core/types"
	"govchain/host"
)

const (
	collectionProposals = "votingbody.proposals"
	collectionAudit     = "votingbody.audit"
	counterProposalId   = "votingbody.proposal_id"
	counterAuditSeq     = "votingbody.audit_seq"
)

// votingBodyState is the narrow persistence surface the Engine depends
// on, mirroring the teacher's proposalState interface so tests can stub
// it without a real backing store.
type votingBodyState interface {
	NextProposalId() (types.ProposalId, error)
	PutProposal(p *Proposal) error
	GetProposal(id types.ProposalId) (*Proposal, bool, error)
	AppendAudit(rec *AuditRecord) error
}

// StoreBackend is the votingBodyState implementation backed by a
// host.Store, used by cmd/govd.
type StoreBackend struct {
	store host.Store
}

// NewStoreBackend wraps store for use by the Voting Body engine.
func NewStoreBackend(store host.Store) *StoreBackend {
	return &StoreBackend{store: store}
}

func (b *StoreBackend) NextProposalId() (types.ProposalId, error) {
	seq, err := b.store.NextSequence(counterProposalId)
	if err != nil {
		return 0, err
	}
	return types.ProposalId(seq), nil
}

func (b *StoreBackend) PutProposal(p *Proposal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("votingbody: marshal proposal: %w", err)
	}
	return b.store.Put(collectionProposals, fmt.Sprintf("%d", p.Id), raw)
}

func (b *StoreBackend) GetProposal(id types.ProposalId) (*Proposal, bool, error) {
	raw, found, err := b.store.Get(collectionProposals, fmt.Sprintf("%d", id))
	if err != nil || !found {
		return nil, found, err
	}
	p := &Proposal{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, false, fmt.Errorf("votingbody: unmarshal proposal: %w", err)
	}
	return p, true, nil
}

func (b *StoreBackend) AppendAudit(rec *AuditRecord) error {
	seq, err := b.store.NextSequence(counterAuditSeq)
	if err != nil {
		return err
	}
	rec.Sequence = seq
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.store.Put(collectionAudit, fmt.Sprintf("%020d", seq), raw)
}
