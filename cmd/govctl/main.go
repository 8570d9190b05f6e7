// Command govctl is the operator CLI for inspecting proposals in a govd
// data directory; its only command shows a Voting Body proposal by id.
// It has no submit, vote or execute commands. It opens the same
// on-disk store govd uses rather than talking over the network, the way
// an offline wallet or batch-migration tool in the corpus works.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"govchain/core/types"
	"govchain/host"
	"govchain/native/votingbody"
)

func main() {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:   "govctl",
		Short: "govctl submits and inspects governance proposals",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./gov-data", "path to the govd data directory")

	proposalCmd := &cobra.Command{
		Use:   "proposal",
		Short: "inspect Voting Body proposals",
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "show a Voting Body proposal by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uint32
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("govctl: invalid id %q: %w", args[0], err)
			}
			store, err := host.OpenLevelStore(dataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := votingbody.NewEngine()
			engine.SetState(votingbody.NewStoreBackend(store))
			p, found, err := engine.Proposal(types.ProposalId(id))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("govctl: proposal %d not found", id)
			}
			fmt.Printf("proposal %d: status=%s kind=%s proposer=%s\n", p.Id, p.Status, p.Kind, p.Proposer)
			return nil
		},
	}

	proposalCmd.AddCommand(showCmd)
	rootCmd.AddCommand(proposalCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
