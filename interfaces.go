package tenet

import (
	"context"
	"time"

	"github.com/tenetdb/tenet/pkg/maintenance"
	"github.com/tenetdb/tenet/pkg/recall"
	"github.com/tenetdb/tenet/pkg/types"
)

// Focused interfaces over the client. Consumers should depend on the
// smallest one that meets their needs; *Client satisfies all of them.

// Rememberer is the write side: raw text in, resolved facts out.
type Rememberer interface {
	Remember(ctx context.Context, text string, opts RememberOptions) (*types.ApplyResult, error)
	RememberExtraction(ctx context.Context, ex *types.Extraction, contentItemID string, opts RememberOptions) (*types.ApplyResult, error)
}

// Recaller is the read side with both disclosure tiers.
type Recaller interface {
	Recall(ctx context.Context, query string, opts recall.Options) ([]*types.FactWithReceipts, error)
	RecallIndex(ctx context.Context, query string, opts recall.Options) ([]*types.FactPreview, error)
	RecallDetails(ctx context.Context, ids []string, sc types.Scope) ([]*types.FactWithReceipts, error)
}

// Explainer surfaces the history views.
type Explainer interface {
	Explain(ctx context.Context, factID string, sc types.Scope) (*types.Explanation, error)
	Changes(ctx context.Context, since time.Time, limit int, sc types.Scope) ([]*types.Fact, error)
}

// Maintainer runs background hygiene.
type Maintainer interface {
	Sweep(ctx context.Context, sc types.Scope, budget time.Duration) (*maintenance.Report, error)
}

var (
	_ Rememberer = (*Client)(nil)
	_ Recaller   = (*Client)(nil)
	_ Explainer  = (*Client)(nil)
	_ Maintainer = (*Client)(nil)
)
