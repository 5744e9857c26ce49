package tenet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/types"
)

var explainScope string

var explainCmd = &cobra.Command{
	Use:   "explain <fact-id>",
	Short: "Show the full story of one fact",
	Long: `Show a fact with its receipts, what it superseded, what superseded it,
and any recorded conflicts. A missing id prints present=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVar(&explainScope, "scope", "", "read scope: project, global or all (default)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	sc := types.Scope(explainScope)
	if explainScope != "" && !sc.Valid() {
		return fmt.Errorf("scope must be project, global or all")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	exp, err := client.Explain(cmd.Context(), args[0], sc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}
