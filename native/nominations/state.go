package nominations

import (
	"encoding/json"

	"govchain/core/types"
	"govchain/host"
)

const collectionNominations = "nominations.candidates"

// nominationsState is the narrow persistence surface the Engine depends
// on, keyed by candidate AccountId since each account may nominate at
// most once across every house.
type nominationsState interface {
	PutNomination(n *Nomination) error
	GetNomination(candidate types.AccountId) (*Nomination, bool, error)
	DeleteNomination(candidate types.AccountId) error
	ListNominations(house House) ([]*Nomination, error)
}

// StoreBackend is the nominationsState implementation backed by a
// host.Store.
type StoreBackend struct {
	store host.Store
}

// NewStoreBackend wraps store for use by the Nominations engine.
func NewStoreBackend(store host.Store) *StoreBackend {
	return &StoreBackend{store: store}
}

func (b *StoreBackend) PutNomination(n *Nomination) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.store.Put(collectionNominations, n.Candidate.String(), raw)
}

func (b *StoreBackend) GetNomination(candidate types.AccountId) (*Nomination, bool, error) {
	raw, found, err := b.store.Get(collectionNominations, candidate.String())
	if err != nil || !found {
		return nil, found, err
	}
	n := &Nomination{}
	if err := json.Unmarshal(raw, n); err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (b *StoreBackend) DeleteNomination(candidate types.AccountId) error {
	return b.store.Delete(collectionNominations, candidate.String())
}

func (b *StoreBackend) ListNominations(house House) ([]*Nomination, error) {
	var out []*Nomination
	err := b.store.Iterate(collectionNominations, "", func(key string, value []byte) bool {
		n := &Nomination{}
		if json.Unmarshal(value, n) == nil && n.House == house {
			out = append(out, n)
		}
		return true
	})
	return out, err
}
