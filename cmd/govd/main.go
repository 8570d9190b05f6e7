// Command govd runs the governance daemon: it loads the genesis
// document and runtime config, constructs the five engines against a
// shared store and identity registry, and exposes a read-only query
// HTTP surface.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"govchain/config"
	"govchain/core/clock"
	"govchain/core/types"
	"govchain/genesis"
	"govchain/host"
	"govchain/identity"
	"govchain/native/congress"
	"govchain/native/elections"
	"govchain/native/nominations"
	"govchain/native/votingbody"
	"govchain/observability/logging"
	"govchain/observability/metrics"
)

type server struct {
	votingBody  *votingbody.Engine
	houses      map[string]*congress.Engine
	elections   *elections.Engine
	nominations *nominations.Engine
}

func buildHouse(store host.Store, c clock.Clock, doc genesis.HouseDoc) (*congress.Engine, error) {
	e := congress.NewEngine()
	e.SetState(congress.NewStoreBackend(store, doc.Name))
	e.SetClock(c)

	permissions := make(map[types.AccountId]map[congress.Permission]bool)
	for acct, perms := range doc.Permissions {
		set := make(map[congress.Permission]bool, len(perms))
		for _, p := range perms {
			set[congress.Permission(p)] = true
		}
		permissions[types.AccountId(acct)] = set
	}
	hookAuth := make(map[types.AccountId]map[congress.Hook]bool)
	for acct, hooks := range doc.HookGrants {
		set := make(map[congress.Hook]bool, len(hooks))
		for _, h := range hooks {
			set[congress.Hook(h)] = true
		}
		hookAuth[types.AccountId(acct)] = set
	}
	budgetCap, err := types.ParseAmount(doc.BudgetCap)
	if err != nil {
		return nil, fmt.Errorf("govd: house %s budgetCap: %w", doc.Name, err)
	}
	bigThreshold, err := types.ParseAmount(doc.BigFundingThreshold)
	if err != nil {
		return nil, fmt.Errorf("govd: house %s bigFundingThreshold: %w", doc.Name, err)
	}

	e.SetConfig(congress.HouseConfig{
		Name:                doc.Name,
		Members:             genesis.AccountIds(doc.Members),
		Permissions:         permissions,
		HookAuth:            hookAuth,
		Threshold:           doc.Threshold,
		StartTime:           doc.StartTime,
		EndTime:             doc.EndTime,
		Cooldown:            genesis.Seconds(doc.CooldownSeconds),
		VoteDuration:        genesis.Seconds(doc.VoteDurationSeconds),
		MinVoteDuration:     genesis.Seconds(doc.MinVoteDurationSeconds),
		BudgetCap:           budgetCap,
		BigFundingThreshold: bigThreshold,
	})
	return e, nil
}

func run(cfgPath string) error {
	logger := logging.Setup("govd", "development")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("govd: load config: %w", err)
	}
	doc, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("govd: load genesis: %w", err)
	}

	store, err := host.OpenLevelStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("govd: open store: %w", err)
	}
	defer store.Close()

	sysClock := clock.System{}
	registry := identity.NewMemRegistry(nil, func() int64 { return sysClock.NowMillis() }, []byte(cfg.AuthorityKey))
	promises := host.NewMemPromises()

	srv := &server{houses: map[string]*congress.Engine{}}

	srv.votingBody = votingbody.NewEngine()
	srv.votingBody.SetState(votingbody.NewStoreBackend(store))
	srv.votingBody.SetClock(sysClock)
	srv.votingBody.SetIdentity(registry)
	srv.votingBody.SetPromises(promises)

	knownHouses := make([]types.AccountId, 0, len(doc.Houses))
	for _, h := range doc.Houses {
		knownHouses = append(knownHouses, types.AccountId(h.Name))
	}
	preVoteBond, err := types.ParseAmount(doc.VotingBody.PreVoteBond)
	if err != nil {
		return fmt.Errorf("govd: votingBody.preVoteBond: %w", err)
	}
	activeQueueBond, err := types.ParseAmount(doc.VotingBody.ActiveQueueBond)
	if err != nil {
		return fmt.Errorf("govd: votingBody.activeQueueBond: %w", err)
	}
	srv.votingBody.SetPolicy(votingbody.Policy{
		PreVoteBond:     preVoteBond,
		ActiveQueueBond: activeQueueBond,
		PreVoteDuration: genesis.Seconds(doc.VotingBody.PreVoteDurationSeconds),
		VoteDuration:    genesis.Seconds(doc.VotingBody.VoteDurationSeconds),
		StartTime:       doc.VotingBody.StartTime,
		EndTime:         doc.VotingBody.EndTime,
		CommunityFund:   types.AccountId(doc.VotingBody.CommunityFund),
		KnownHouses:     knownHouses,
	})

	for _, h := range doc.Houses {
		houseEngine, err := buildHouse(store, sysClock, h)
		if err != nil {
			return err
		}
		srv.houses[h.Name] = houseEngine
	}
	if len(srv.houses) > 0 {
		srv.votingBody.SetCongressQuery(multiHouseQuery(srv.houses))
	}

	srv.elections = elections.NewEngine()
	srv.elections.SetState(elections.NewStoreBackend(store))
	srv.elections.SetClock(sysClock)
	srv.elections.SetIdentity(registry)
	srv.elections.SetPromises(promises)
	srv.elections.SetAuthority(types.AccountId(doc.Elections.Authority))

	srv.nominations = nominations.NewEngine()
	srv.nominations.SetState(nominations.NewStoreBackend(store))
	srv.nominations.SetClock(sysClock)
	srv.nominations.SetIdentity(registry)
	srv.nominations.SetWindow(doc.Nominations.StartTime, doc.Nominations.EndTime)

	router := chi.NewRouter()
	srv.mountRoutes(router)

	logger.Info("govd listening", "query_address", cfg.QueryAddress)
	return http.ListenAndServe(cfg.QueryAddress, router)
}

// multiHouseQuery satisfies votingbody.CongressQuery by fanning out to
// whichever house engine owns the queried dao.
type multiHouseQuery map[string]*congress.Engine

func (m multiHouseQuery) IsHouse(dao types.AccountId) bool {
	_, ok := m[string(dao)]
	return ok
}

func (m multiHouseQuery) IsMember(dao, caller types.AccountId) bool {
	house, ok := m[string(dao)]
	if !ok {
		return false
	}
	return house.IsMember(dao, caller)
}

func (s *server) mountRoutes(r chi.Router) {
	r.Get("/votingbody/proposals/{id}", s.handleVotingBodyProposal)
	r.Get("/elections/{id}/winners", s.handleElectionWinners)
	r.Get("/nominations/{house}", s.handleNominations)
	r.Handle("/metrics", promhttp.Handler())
}

func (s *server) handleVotingBodyProposal(w http.ResponseWriter, r *http.Request) {
	m := metrics.ForEngine("votingbody")
	start := time.Now()
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		m.Observe("proposal", start, "invalid_id")
		return
	}
	p, found, err := s.votingBody.Proposal(types.ProposalId(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		m.Observe("proposal", start, "lookup_failed")
		return
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		m.Observe("proposal", start, "not_found")
		return
	}
	m.Observe("proposal", start, "")
	writeJSON(w, p)
}

func (s *server) handleElectionWinners(w http.ResponseWriter, r *http.Request) {
	m := metrics.ForEngine("elections")
	start := time.Now()
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		m.Observe("winners_by_proposal", start, "invalid_id")
		return
	}
	ongoing := r.URL.Query().Get("ongoing") == "true"
	winners, err := s.elections.WinnersByProposal(types.ProposalId(id), ongoing)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		m.Observe("winners_by_proposal", start, "lookup_failed")
		return
	}
	m.Observe("winners_by_proposal", start, "")
	writeJSON(w, winners)
}

func (s *server) handleNominations(w http.ResponseWriter, r *http.Request) {
	m := metrics.ForEngine("nominations")
	start := time.Now()
	house := chi.URLParam(r, "house")
	rows, err := s.nominations.NominationsByHouse(nominations.House(house))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		m.Observe("nominations_by_house", start, "lookup_failed")
		return
	}
	m.Observe("nominations_by_house", start, "")
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	var cfgPath string
	rootCmd := &cobra.Command{
		Use:   "govd",
		Short: "govd runs the DAO governance engines behind a query HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./govd.toml", "path to the daemon's TOML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
