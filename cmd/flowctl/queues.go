package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hugh/flow/pkg/config"
	"github.com/hugh/flow/pkg/queue"
)

type QueuesCmd struct{}

func (c *QueuesCmd) Run(_ context.Context, _ *Globals) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	inspector := queue.NewInspector(&cfg.Redis)
	defer inspector.Close()

	names, err := inspector.Queues()
	if err != nil {
		return fmt.Errorf("list queues: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tPAUSED")
	for _, name := range names {
		info, err := inspector.GetQueueInfo(name)
		if err != nil {
			return fmt.Errorf("queue %s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%t\n",
			info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived, info.Paused)
	}
	return w.Flush()
}
