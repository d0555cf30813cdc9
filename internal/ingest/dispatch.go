package ingest

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownTask is returned when the requested task has no handler. The
// dispatcher fails rather than guessing, so a typo in a schedule surfaces
// immediately instead of silently syncing nothing.
var ErrUnknownTask = errors.New("unknown task")

type handlerFunc func(ctx context.Context, deps Deps) (int, error)

var handlers = map[string]handlerFunc{
	"deals":        SyncDeals,
	"contacts":     SyncContacts,
	"contacts_dim": SyncContactsDim,
	"companies":    SyncCompanies,
	"activities":   SyncActivities,
	"owners":       SyncOwners,
	"pipelines":    SyncPipelines,
}

// Tasks returns the task names the dispatcher knows, sorted.
func Tasks() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run dispatches one task by name and returns the number of rows written.
func Run(ctx context.Context, task string, deps Deps) (int, error) {
	handler, ok := handlers[task]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTask, "%q (known tasks: %s)", task, strings.Join(Tasks(), ", "))
	}

	start := time.Now()
	log.Printf("Ingest: starting task %s", task)
	written, err := handler(ctx, deps)
	if err != nil {
		return 0, errors.Wrapf(err, "task %s", task)
	}
	log.Printf("Ingest: task %s wrote %d rows in %s", task, written, time.Since(start).Round(time.Millisecond))
	return written, nil
}
