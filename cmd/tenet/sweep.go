package tenet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/types"
)

var (
	sweepScope  string
	sweepBudget time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run store maintenance under a time budget",
	Long: `Run the maintenance steps: expire stale proposed facts, prune orphaned
receipts, delete aged-out unreferenced content. Steps that do not fit in the
budget are skipped and reported.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepScope, "scope", "", "scope to sweep: project, global or all (default)")
	sweepCmd.Flags().DurationVar(&sweepBudget, "budget", 0, "time budget, e.g. 500ms or 2s")
}

func runSweep(cmd *cobra.Command, args []string) error {
	sc := types.Scope(sweepScope)
	if sweepScope != "" && !sc.Valid() {
		return fmt.Errorf("scope must be project, global or all")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := client.Sweep(cmd.Context(), sc, sweepBudget)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
