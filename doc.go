// Package tenet provides a local-first fact store for coding agents.
//
// Tenet distills conversation transcripts into atomic facts (subject,
// predicate, object), maintains them under a truth-maintenance policy
// (equivalence, accumulation, supersession, conflict) and serves them back
// through a two-tier recall interface: a cheap preview index and on-demand
// full details with provenance receipts.
//
// Facts live in per-scope SQLite databases: one per project, plus a global
// store for user-wide preferences. Every fact carries at least one receipt, a
// quote from the evidence it was extracted from.
//
// # Basic Usage
//
//	client, err := tenet.NewClient(tenet.Config{ProjectPath: "/path/to/repo"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	_, err = client.Remember(ctx, "we switched from mysql to postgresql", tenet.RememberOptions{})
//
//	results, err := client.Recall(ctx, "which database", recall.Options{})
//
// The cmd/tenet binary wraps the client in a CLI, an MCP stdio server and an
// HTTP API.
package tenet
