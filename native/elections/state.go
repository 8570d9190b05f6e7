package elections

import (
	"encoding/json"
	"fmt"

	"govchain/core/types"
	"govchain/host"
)

const (
	collectionProposals = "elections.proposals"
	counterProposalId   = "elections.proposal_id"
)

// electionsState is the narrow persistence surface the Engine depends
// on.
type electionsState interface {
	NextProposalId() (types.ProposalId, error)
	PutProposal(p *Proposal) error
	GetProposal(id types.ProposalId) (*Proposal, bool, error)
	AllProposalIds() ([]types.ProposalId, error)
}

// StoreBackend is the electionsState implementation backed by a
// host.Store.
type StoreBackend struct {
	store host.Store
}

// NewStoreBackend wraps store for use by the Elections engine.
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
		return err
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
		return nil, false, err
	}
	return p, true, nil
}

func (b *StoreBackend) AllProposalIds() ([]types.ProposalId, error) {
	var ids []types.ProposalId
	err := b.store.Iterate(collectionProposals, "", func(key string, value []byte) bool {
		p := &Proposal{}
		if json.Unmarshal(value, p) == nil {
			ids = append(ids, p.Id)
		}
		return true
	})
	return ids, err
}
