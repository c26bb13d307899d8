// Package store defines the Store capability: persistence of Tasks,
// Checkpoints, and terminal reports, keyed by task identifier. Schema is
// adapter-local; the core supplies domain structs. Concrete adapters (e.g.
// pkg/store/pgstore) live outside this package.
package store

import (
	"context"

	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/report"
	"github.com/turbowrap/turbowrap/pkg/taskqueue"
)

// Store is the full persistence capability. It embeds checkpoint.Store so a
// single concrete adapter satisfies both the Checkpoint Manager and the
// orchestrators' task/report persistence needs.
type Store interface {
	checkpoint.Store

	SaveTask(ctx context.Context, task *taskqueue.Task) error
	LoadTask(ctx context.Context, id string) (*taskqueue.Task, error)

	SaveFinalReport(ctx context.Context, r report.FinalReport) error
	LoadFinalReport(ctx context.Context, id string) (report.FinalReport, error)

	SaveFixReport(ctx context.Context, r report.FixReport) error
	LoadFixReport(ctx context.Context, id string) (report.FixReport, error)
}
