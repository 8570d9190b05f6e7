// Package genesis loads the one-time bootstrap document govd reads at
// startup: the initial Voting Body size snapshot, Congress house
// rosters and hook grants, the Elections authority, and the Nominations
// window. This is deliberately a separate, YAML-based format from the
// TOML runtime config in package config, mirroring the corpus's own
// split between a gateway's YAML service config and a node's TOML
// runtime config.
package genesis

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"govchain/core/types"
)

// HouseDoc is one Congress house's genesis configuration.
type HouseDoc struct {
	Name                string            `yaml:"name"`
	Members             []string          `yaml:"members"`
	Permissions         map[string][]string `yaml:"permissions"`
	HookGrants          map[string][]string `yaml:"hookGrants"`
	Threshold           uint64            `yaml:"threshold"`
	StartTime           int64             `yaml:"startTime"`
	EndTime             int64             `yaml:"endTime"`
	CooldownSeconds     int64             `yaml:"cooldownSeconds"`
	VoteDurationSeconds int64             `yaml:"voteDurationSeconds"`
	MinVoteDurationSeconds int64          `yaml:"minVoteDurationSeconds"`
	BudgetCap           string            `yaml:"budgetCap"`
	BigFundingThreshold string            `yaml:"bigFundingThreshold"`
}

// VotingBodyDoc configures the Voting Body engine's genesis policy.
type VotingBodyDoc struct {
	BodySize               uint64   `yaml:"bodySize"`
	PreVoteBond            string   `yaml:"preVoteBond"`
	ActiveQueueBond        string   `yaml:"activeQueueBond"`
	PreVoteDurationSeconds int64    `yaml:"preVoteDurationSeconds"`
	VoteDurationSeconds    int64    `yaml:"voteDurationSeconds"`
	StartTime              int64    `yaml:"startTime"`
	EndTime                int64    `yaml:"endTime"`
	CommunityFund          string   `yaml:"communityFund"`
	PreVoteSupport         int      `yaml:"preVoteSupport"`
}

// ElectionsDoc configures the Elections engine's genesis policy.
type ElectionsDoc struct {
	Authority string `yaml:"authority"`
}

// NominationsDoc configures the Nominations engine's genesis window.
type NominationsDoc struct {
	StartTime int64 `yaml:"startTime"`
	EndTime   int64 `yaml:"endTime"`
}

// Document is the full genesis/bootstrap document.
type Document struct {
	VotingBody  VotingBodyDoc   `yaml:"votingBody"`
	Houses      []HouseDoc      `yaml:"houses"`
	Elections   ElectionsDoc    `yaml:"elections"`
	Nominations NominationsDoc  `yaml:"nominations"`
}

// Load reads and parses the genesis document at path.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %q: %w", path, err)
	}
	doc := &Document{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("genesis: parse %q: %w", path, err)
	}
	return doc, nil
}

// AccountIds converts a slice of bech32 address strings into AccountIds.
func AccountIds(addrs []string) []types.AccountId {
	out := make([]types.AccountId, len(addrs))
	for i, a := range addrs {
		out[i] = types.AccountId(a)
	}
	return out
}

// Seconds converts a genesis document's integer-seconds field into a
// time.Duration.
func Seconds(s int64) time.Duration { return time.Duration(s) * time.Second }
