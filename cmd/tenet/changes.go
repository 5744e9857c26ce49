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
	changesScope string
	changesSince string
	changesLimit int
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List facts created since a timestamp",
	RunE:  runChanges,
}

func init() {
	rootCmd.AddCommand(changesCmd)

	changesCmd.Flags().StringVar(&changesScope, "scope", "", "read scope: project, global or all (default)")
	changesCmd.Flags().StringVar(&changesSince, "since", "", "RFC3339 timestamp or a duration like 24h (default 24h)")
	changesCmd.Flags().IntVar(&changesLimit, "limit", 0, "maximum results")
}

func runChanges(cmd *cobra.Command, args []string) error {
	sc := types.Scope(changesScope)
	if changesScope != "" && !sc.Valid() {
		return fmt.Errorf("scope must be project, global or all")
	}

	since, err := parseSince(changesSince)
	if err != nil {
		return err
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	facts, err := client.Changes(cmd.Context(), since, changesLimit, sc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(facts)
}

// parseSince accepts an absolute RFC3339 timestamp or a relative duration.
func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().Add(-24 * time.Hour), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return time.Now().Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("since must be an RFC3339 timestamp or a duration")
}
