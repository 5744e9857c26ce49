// Package hook implements the agent lifecycle hook entrypoint. The hook
// reads a JSON request on stdin, ingests the transcript tail and runs a
// bounded maintenance sweep, then reports through its exit code: 0 on
// success, 1 on a non-blocking failure the agent may ignore, 2 on a blocking
// failure whose stderr output the agent should see.
package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tenet "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/types"
)

// Exit codes of the hook contract.
const (
	ExitOK          = 0
	ExitNonBlocking = 1
	ExitBlocking    = 2
)

// Mode selects what the hook does.
type Mode string

const (
	// ModeIngest distills the unread transcript tail into facts.
	ModeIngest Mode = "ingest"
	// ModeSweep runs maintenance only.
	ModeSweep Mode = "sweep"
	// ModeFull ingests then sweeps with the remaining budget.
	ModeFull Mode = "full"
)

// Request is the JSON document the agent writes to the hook's stdin.
type Request struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	ProjectPath    string `json:"project_path"`
	BudgetMS       int    `json:"budget_ms"`
	Mode           Mode   `json:"mode"`
}

// Response is written to stdout on success.
type Response struct {
	Ingested *types.ApplyResult `json:"ingested,omitempty"`
	Swept    any                `json:"swept,omitempty"`
}

// DefaultBudget applies when the request carries none.
const DefaultBudget = 5 * time.Second

// Run executes one hook invocation and returns the exit code. Errors are
// written to stderr; the caller passes the code to os.Exit.
func Run(ctx context.Context, client *tenet.Client, in io.Reader, out io.Writer, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "tenet hook: malformed request: %v\n", err)
		return ExitBlocking
	}
	if req.Mode == "" {
		req.Mode = ModeFull
	}

	budget := time.Duration(req.BudgetMS) * time.Millisecond
	if budget <= 0 {
		budget = DefaultBudget
	}
	deadline := time.Now().Add(budget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var resp Response

	if req.Mode == ModeIngest || req.Mode == ModeFull {
		if req.TranscriptPath == "" {
			fmt.Fprintln(os.Stderr, "tenet hook: transcript_path is required for ingest")
			return ExitBlocking
		}
		result, err := client.IngestTranscript(ctx, req.TranscriptPath, tenet.RememberOptions{
			SessionID: req.SessionID,
			Source:    "hook",
		})
		if err != nil {
			// Ingestion failures never block the agent; the transcript will
			// be retried on the next invocation since the cursor did not
			// advance.
			logger.Error("hook ingestion failed", "error", err)
			fmt.Fprintf(os.Stderr, "tenet hook: ingestion failed: %v\n", err)
			if isBlocking(err) {
				return ExitBlocking
			}
			return ExitNonBlocking
		}
		resp.Ingested = result
	}

	if req.Mode == ModeSweep || req.Mode == ModeFull {
		remaining := time.Until(deadline)
		if remaining > 0 {
			report, err := client.Sweep(ctx, types.ScopeAll, remaining)
			if err != nil {
				logger.Error("hook sweep failed", "error", err)
				fmt.Fprintf(os.Stderr, "tenet hook: sweep failed: %v\n", err)
				return ExitNonBlocking
			}
			resp.Swept = report
		}
	}

	if err := json.NewEncoder(out).Encode(&resp); err != nil {
		fmt.Fprintf(os.Stderr, "tenet hook: failed to write response: %v\n", err)
		return ExitNonBlocking
	}
	return ExitOK
}

// isBlocking classifies errors the agent must act on: a malformed extraction
// means the input itself is bad and retrying cannot help.
func isBlocking(err error) bool {
	var verr *types.ValidationError
	return errors.As(err, &verr)
}
