package tenet

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tenetdb/tenet/pkg/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run one agent lifecycle hook invocation",
	Long: `Read a JSON request from stdin ({session_id, transcript_path,
project_path, budget_ms, mode}), ingest the unread transcript tail and run a
bounded maintenance sweep.

Exit codes: 0 success, 1 non-blocking failure, 2 blocking failure.`,
	Run: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) {
	client, _, logger, err := newClient()
	if err != nil {
		cmd.PrintErrln("tenet hook:", err)
		os.Exit(hook.ExitBlocking)
	}
	defer client.Close()

	code := hook.Run(cmd.Context(), client, os.Stdin, os.Stdout, logger)
	if code != hook.ExitOK {
		client.Close()
		os.Exit(code)
	}
}
