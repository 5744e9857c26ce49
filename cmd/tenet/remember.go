package tenet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	tenetlib "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/types"
)

var (
	rememberScope   string
	rememberSession string
)

var rememberCmd = &cobra.Command{
	Use:   "remember [text]",
	Short: "Distill text into facts and store them",
	Long: `Distill the given text (or stdin when no argument is given) into atomic
facts and merge them into the store. Duplicate claims gain evidence, explicit
changes supersede old facts, contradictions are recorded as conflicts.`,
	RunE: runRemember,
}

func init() {
	rootCmd.AddCommand(rememberCmd)

	rememberCmd.Flags().StringVar(&rememberScope, "scope", "", "write scope: project (default) or global")
	rememberCmd.Flags().StringVar(&rememberSession, "session", "", "session id for provenance")
}

func runRemember(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to remember")
	}

	sc := types.Scope(rememberScope)
	if rememberScope != "" && sc != types.ScopeProject && sc != types.ScopeGlobal {
		return fmt.Errorf("scope must be project or global")
	}

	client, _, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Remember(cmd.Context(), text, tenetlib.RememberOptions{
		SessionID: rememberSession,
		Scope:     sc,
		Source:    "cli",
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
