// Package identity models the external "human-identity registry"
// collaborator: it verifies caller humanity, mints non-transferable
// credentials, and exposes the ban/soul-transfer-lock flags every
// governance engine consults before trusting a caller.
package identity

import (
	"fmt"
	"sync"
	"time"

	"govchain/core/types"

	"github.com/golang-jwt/jwt/v5"
	"lukechampine.com/blake3"
)

// Flag is the account-level moderation state spec §6 names:
// account_flagged returns one of None | Verified | GovBan | Blacklisted.
type Flag string

const (
	FlagNone        Flag = "None"
	FlagVerified    Flag = "Verified"
	FlagGovBan      Flag = "GovBan"
	FlagBlacklisted Flag = "Blacklisted"
)

// Proof is the iah_proof attestation forwarded alongside every
// is_human_call/is_human_call_lock invocation: a signed claim that the
// caller passed humanity verification at IssuedAt.
type Proof struct {
	Caller   types.AccountId
	IssuedAt int64
	Flag     Flag
}

// Registry is the interface every engine consumes instead of talking to
// the identity registry's contract surface directly.
type Registry interface {
	// IsHumanCall verifies the caller is a verified human and returns the
	// attestation to forward into the engine call. Returns a plain error
	// when the caller is unverified; engines wrap it as taxonomy's
	// NotHuman.
	IsHumanCall(caller types.AccountId) (Proof, error)
	// IsHumanCallLock is IsHumanCall plus a soul-transfer lock held for
	// lockDuration, preventing the identity underlying caller from being
	// transferred to a new account until the lock expires.
	IsHumanCallLock(caller types.AccountId, lockDuration time.Duration) (Proof, error)
	// AccountFlagged reports the caller's current moderation flag.
	AccountFlagged(account types.AccountId) Flag
	// SetGovBan is the hook Congress's DismissAndBan execution invokes.
	SetGovBan(account types.AccountId) error
	// AcceptedPolicyHash records that account accepted the fair-voting
	// policy identified by hash, for Elections' accept_fair_voting_policy.
	AcceptedPolicyHash(account types.AccountId, hash [32]byte) error
	// HasAcceptedPolicy reports whether account previously accepted hash.
	HasAcceptedPolicy(account types.AccountId, hash [32]byte) bool
	// MintVotedCredential issues the non-transferable credential a voter
	// receives for participating, returning its identifier.
	MintVotedCredential(account types.AccountId, class uint64) (types.CredentialId, error)
}

// HashPolicy derives the stable policy-acceptance hash from its raw text
// as a BLAKE3 digest.
func HashPolicy(policyText string) [32]byte {
	return blake3.Sum256([]byte(policyText))
}

// MemRegistry is the reference Registry implementation used by engine
// tests and by single-binary deployments of govd.
type MemRegistry struct {
	mu          sync.Mutex
	verified    map[types.AccountId]bool
	flags       map[types.AccountId]Flag
	locks       map[types.AccountId]int64
	acceptedPolicy map[types.AccountId]map[[32]byte]bool
	nextToken   map[uint64]uint64
	now         func() int64
	signingKey  []byte
}

// NewMemRegistry constructs a registry where every listed account is
// pre-verified as human; everyone else is treated as unverified.
func NewMemRegistry(verifiedAccounts []types.AccountId, now func() int64, signingKey []byte) *MemRegistry {
	verified := make(map[types.AccountId]bool, len(verifiedAccounts))
	for _, a := range verifiedAccounts {
		verified[a] = true
	}
	return &MemRegistry{
		verified:       verified,
		flags:          make(map[types.AccountId]Flag),
		locks:          make(map[types.AccountId]int64),
		acceptedPolicy: make(map[types.AccountId]map[[32]byte]bool),
		nextToken:      make(map[uint64]uint64),
		now:            now,
		signingKey:     signingKey,
	}
}

// Verify marks account as a verified human, as if it had completed the
// registry's off-chain verification flow.
func (r *MemRegistry) Verify(account types.AccountId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified[account] = true
}

func (r *MemRegistry) flagLocked(account types.AccountId) Flag {
	if f, ok := r.flags[account]; ok {
		return f
	}
	if r.verified[account] {
		return FlagVerified
	}
	return FlagNone
}

func (r *MemRegistry) IsHumanCall(caller types.AccountId) (Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag := r.flagLocked(caller)
	if flag == FlagGovBan || flag == FlagBlacklisted || flag != FlagVerified {
		return Proof{}, fmt.Errorf("identity: %s is not a verified human", caller)
	}
	return r.issueProofLocked(caller, flag)
}

func (r *MemRegistry) IsHumanCallLock(caller types.AccountId, lockDuration time.Duration) (Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag := r.flagLocked(caller)
	if flag != FlagVerified {
		return Proof{}, fmt.Errorf("identity: %s is not a verified human", caller)
	}
	r.locks[caller] = r.now() + lockDuration.Milliseconds()
	return r.issueProofLocked(caller, flag)
}

func (r *MemRegistry) issueProofLocked(caller types.AccountId, flag Flag) (Proof, error) {
	return Proof{Caller: caller, IssuedAt: r.now(), Flag: flag}, nil
}

func (r *MemRegistry) AccountFlagged(account types.AccountId) Flag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flagLocked(account)
}

func (r *MemRegistry) SetGovBan(account types.AccountId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[account] = FlagGovBan
	return nil
}

func (r *MemRegistry) AcceptedPolicyHash(account types.AccountId, hash [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.acceptedPolicy[account]
	if !ok {
		set = make(map[[32]byte]bool)
		r.acceptedPolicy[account] = set
	}
	set[hash] = true
	return nil
}

func (r *MemRegistry) HasAcceptedPolicy(account types.AccountId, hash [32]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptedPolicy[account][hash]
}

func (r *MemRegistry) MintVotedCredential(account types.AccountId, class uint64) (types.CredentialId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextToken[class]++
	return types.CredentialId{
		Issuer: "registry",
		Class:  class,
		Token:  r.nextToken[class],
	}, nil
}

// proofClaims is the JWT claim set an iah_proof is encoded as.
type proofClaims struct {
	jwt.RegisteredClaims
	Flag string `json:"flag"`
}

// SignProof encodes proof as a signed JWT, the wire form engines forward
// alongside a human-call payload, mirroring the gateway's bearer-token
// pattern.
func (r *MemRegistry) SignProof(p Proof) (string, error) {
	claims := proofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.Caller.String(),
			IssuedAt: jwt.NewNumericDate(time.UnixMilli(p.IssuedAt)),
		},
		Flag: string(p.Flag),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.signingKey)
}

// VerifyProof decodes and validates a signed iah_proof, rejecting proofs
// from GovBan'd or Blacklisted accounts.
func (r *MemRegistry) VerifyProof(token string) (Proof, error) {
	claims := &proofClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return r.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return Proof{}, fmt.Errorf("identity: invalid iah_proof: %w", err)
	}
	flag := Flag(claims.Flag)
	if flag == FlagGovBan || flag == FlagBlacklisted {
		return Proof{}, fmt.Errorf("identity: caller %s is banned", claims.Subject)
	}
	return Proof{
		Caller:   types.AccountId(claims.Subject),
		IssuedAt: claims.IssuedAt.Time.UnixMilli(),
		Flag:     flag,
	}, nil
}
