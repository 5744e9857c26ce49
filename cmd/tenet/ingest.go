package tenet

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tenetlib "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/types"
)

var (
	ingestScope   string
	ingestSession string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <transcript.jsonl>",
	Short: "Ingest the unread tail of a transcript file",
	Long: `Ingest a JSONL transcript incrementally. A cursor tracks how far each
file has been read, and content hashing makes re-runs idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestScope, "scope", "", "write scope: project (default) or global")
	ingestCmd.Flags().StringVar(&ingestSession, "session", "", "session id for provenance")
}

func runIngest(cmd *cobra.Command, args []string) error {
	sc := types.Scope(ingestScope)
	if ingestScope != "" && sc != types.ScopeProject && sc != types.ScopeGlobal {
		return fmt.Errorf("scope must be project or global")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.IngestTranscript(cmd.Context(), args[0], tenetlib.RememberOptions{
		SessionID: ingestSession,
		Scope:     sc,
		Source:    "transcript",
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
