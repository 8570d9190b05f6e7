package congress

import (
	"encoding/json"
	"fmt"

	"govchain/core/types"
	"govchain/host"
)

// houseState is the narrow persistence surface an Engine instance
// depends on; cmd/govd gives each of the three houses its own
// StoreBackend over a collection namespace keyed by house name.
type houseState interface {
	NextProposalId() (types.ProposalId, error)
	PutProposal(p *Proposal) error
	GetProposal(id types.ProposalId) (*Proposal, bool, error)
	AppendAudit(rec *AuditRecord) error
}

// StoreBackend is the houseState implementation backed by a host.Store,
// namespaced per house so three Engine instances can share one
// underlying store without key collisions.
type StoreBackend struct {
	store host.Store
	house string
}

// NewStoreBackend wraps store, scoping all keys under the given house
// name.
func NewStoreBackend(store host.Store, house string) *StoreBackend {
	return &StoreBackend{store: store, house: house}
}

func (b *StoreBackend) collection(name string) string {
	return fmt.Sprintf("congress.%s.%s", b.house, name)
}

func (b *StoreBackend) NextProposalId() (types.ProposalId, error) {
	seq, err := b.store.NextSequence(b.collection("proposal_id"))
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
	return b.store.Put(b.collection("proposals"), fmt.Sprintf("%d", p.Id), raw)
}

func (b *StoreBackend) GetProposal(id types.ProposalId) (*Proposal, bool, error) {
	raw, found, err := b.store.Get(b.collection("proposals"), fmt.Sprintf("%d", id))
	if err != nil || !found {
		return nil, found, err
	}
	p := &Proposal{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (b *StoreBackend) AppendAudit(rec *AuditRecord) error {
	seq, err := b.store.NextSequence(b.collection("audit_seq"))
	if err != nil {
		return err
	}
	rec.Sequence = seq
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.store.Put(b.collection("audit"), fmt.Sprintf("%020d", seq), raw)
}
