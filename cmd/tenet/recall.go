package tenet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/recall"
	"github.com/tenetdb/tenet/pkg/types"
)

var (
	recallScope   string
	recallLimit   int
	recallIndex   bool
	recallDetails []string
)

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Retrieve facts matching a query",
	Long: `Retrieve facts matching a free-text query, with provenance receipts.

With --index only a compact preview is printed (id, subject, predicate,
truncated object, token estimate). With --details the query is skipped and
the given fact ids are hydrated instead.`,
	RunE: runRecall,
}

func init() {
	rootCmd.AddCommand(recallCmd)

	recallCmd.Flags().StringVar(&recallScope, "scope", "", "read scope: project, global or all (default)")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 0, "maximum results")
	recallCmd.Flags().BoolVar(&recallIndex, "index", false, "print the preview tier only")
	recallCmd.Flags().StringSliceVar(&recallDetails, "details", nil, "hydrate these fact ids instead of querying")
}

func runRecall(cmd *cobra.Command, args []string) error {
	sc := types.Scope(recallScope)
	if recallScope != "" && !sc.Valid() {
		return fmt.Errorf("scope must be project, global or all")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if len(recallDetails) > 0 {
		results, err := client.RecallDetails(cmd.Context(), recallDetails, sc)
		if err != nil {
			return err
		}
		return enc.Encode(results)
	}

	if len(args) == 0 {
		return fmt.Errorf("a query is required unless --details is given")
	}
	query := strings.Join(args, " ")
	opts := recall.Options{Scope: sc, Limit: recallLimit}

	if recallIndex {
		previews, err := client.RecallIndex(cmd.Context(), query, opts)
		if err != nil {
			return err
		}
		return enc.Encode(previews)
	}

	results, err := client.Recall(cmd.Context(), query, opts)
	if err != nil {
		return err
	}
	return enc.Encode(results)
}
