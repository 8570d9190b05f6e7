// Package types defines the primitive identifiers and value types shared by
// every governance engine.
package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// AccountId is an opaque, bech32-encoded account reference. It is the wire
// form used by proposal payloads, ballots, and audit records.
type AccountId string

// String implements fmt.Stringer.
func (a AccountId) String() string { return string(a) }

// Empty reports whether the identifier carries no value.
func (a AccountId) Empty() bool { return strings.TrimSpace(string(a)) == "" }

// ProposalId identifies a proposal within a single engine instance. IDs are
// allocated monotonically per engine starting at 1; zero is never valid.
type ProposalId uint32

// CredentialId names an identity-registry credential by issuer and the
// issuer-local (class, token) pair, mirroring non-transferable token
// identifiers in the human-identity registry.
type CredentialId struct {
	Issuer AccountId `json:"issuer"`
	Class  uint64    `json:"class"`
	Token  uint64    `json:"token"`
}

// String renders a stable, human-readable credential reference.
func (c CredentialId) String() string {
	return fmt.Sprintf("%s:%d:%d", c.Issuer, c.Class, c.Token)
}

// Amount is a 128-bit unsigned token quantity expressed in the chain's
// smallest unit. It wraps uint256.Int (the only fixed-width unsigned integer
// type the ecosystem offers) and enforces the 128-bit ceiling the spec
// requires.
type Amount struct {
	v uint256.Int
}

// maxUint128 is (2^128)-1, the ceiling spec §3 places on token amounts.
var maxUint128 = func() uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), 128)
	v.SubUint64(&v, 1)
	return v
}()

// ZeroAmount returns the additive identity.
func ZeroAmount() Amount { return Amount{} }

// NewAmountFromUint64 constructs an Amount from a uint64 value.
func NewAmountFromUint64(v uint64) Amount {
	var out Amount
	out.v.SetUint64(v)
	return out
}

// ParseAmount parses a base-10, non-negative integer string into an Amount,
// rejecting values that would overflow 128 bits.
func ParseAmount(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Amount{}, nil
	}
	var v uint256.Int
	if err := v.SetFromDecimal(trimmed); err != nil {
		return Amount{}, fmt.Errorf("types: invalid amount %q: %w", s, err)
	}
	if v.Gt(&maxUint128) {
		return Amount{}, fmt.Errorf("types: amount %q exceeds 128 bits", s)
	}
	return Amount{v: v}, nil
}

// Add returns a+b, erroring on overflow of the 128-bit ceiling.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	out.v.Add(&a.v, &b.v)
	if out.v.Gt(&maxUint128) {
		return Amount{}, fmt.Errorf("types: amount addition overflow")
	}
	return out, nil
}

// Sub returns a-b, erroring if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, fmt.Errorf("types: amount subtraction underflow")
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, nil
}

// MulUint64 returns a*n, erroring on overflow of the 128-bit ceiling.
func (a Amount) MulUint64(n uint64) (Amount, error) {
	var out Amount
	var factor uint256.Int
	factor.SetUint64(n)
	_, overflow := out.v.MulOverflow(&a.v, &factor)
	if overflow || out.v.Gt(&maxUint128) {
		return Amount{}, fmt.Errorf("types: amount multiplication overflow")
	}
	return out, nil
}

// Cmp compares two amounts, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Sign reports -1/0/1 relative to zero. Amount is unsigned so this is never
// negative, but the method is kept for parity with big.Int-shaped code.
func (a Amount) Sign() int { return a.v.Sign() }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// String renders the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalJSON renders the amount as a decimal-string JSON value so large
// values survive round-tripping through float-based JSON decoders.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON parses either a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
