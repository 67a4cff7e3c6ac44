package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tillerworks/tiller/pkg/audit"
	"github.com/tillerworks/tiller/pkg/bus"
	"github.com/tillerworks/tiller/pkg/config"
	"github.com/tillerworks/tiller/pkg/lease"
	"github.com/tillerworks/tiller/pkg/store"
)

// runLeaseCmd manages the orchestrator lease.
// Usage: tiller lease <acquire|renew|release> -owner <id> [flags]
func runLeaseCmd(args []string, stdout, stderr io.Writer) int {
	verb := args[0]
	switch verb {
	case "acquire", "renew", "release":
	default:
		fmt.Fprintf(stderr, "Unknown lease subcommand: %s\n", verb)
		return exitUsage
	}

	cmd := flag.NewFlagSet("lease "+verb, flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		owner  string
		name   string
		dbPath string
		ttl    time.Duration
	)
	cmd.StringVar(&owner, "owner", "", "Owner identity (REQUIRED)")
	cmd.StringVar(&name, "name", "orchestrator", "Lease name")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the state database")
	cmd.DurationVar(&ttl, "ttl", 5*time.Minute, "Lease duration")

	if err := cmd.Parse(args[1:]); err != nil {
		return exitUsage
	}
	if owner == "" {
		fmt.Fprintln(stderr, "Error: -owner is required")
		cmd.Usage()
		return exitUsage
	}

	ctx := context.Background()
	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return exitFailed
	}
	defer db.Close()

	leases, err := lease.NewStore(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing lease store: %v\n", err)
		return exitFailed
	}
	auditor := audit.NewLoggerWithWriter(stderr, cfg.Actor)

	now := time.Now().UTC()
	switch verb {
	case "acquire":
		record, err := leases.Acquire(ctx, name, owner, now, ttl)
		if err != nil {
			if errors.Is(err, lease.ErrHeld) {
				fmt.Fprintf(stderr, "Lease %q is held by another owner\n", name)
				return exitFailed
			}
			fmt.Fprintf(stderr, "Error acquiring lease: %v\n", err)
			return exitFailed
		}
		_ = auditor.Record(ctx, audit.EventLease, "acquire", name, map[string]any{"owner": owner})
		fmt.Fprintf(stdout, "acquired %s until %s\n", record.Name, record.ExpiresAt.Format(time.RFC3339))
	case "renew":
		record, err := leases.Renew(ctx, name, owner, now, ttl)
		if err != nil {
			if errors.Is(err, lease.ErrNotOwner) {
				fmt.Fprintf(stderr, "Lease %q is not held by %s\n", name, owner)
				return exitFailed
			}
			fmt.Fprintf(stderr, "Error renewing lease: %v\n", err)
			return exitFailed
		}
		_ = auditor.Record(ctx, audit.EventLease, "renew", name, map[string]any{"owner": owner})
		fmt.Fprintf(stdout, "renewed %s until %s\n", record.Name, record.ExpiresAt.Format(time.RFC3339))
	case "release":
		if err := leases.Release(ctx, name, owner); err != nil {
			if errors.Is(err, lease.ErrNotOwner) {
				fmt.Fprintf(stderr, "Lease %q is not held by %s\n", name, owner)
				return exitFailed
			}
			fmt.Fprintf(stderr, "Error releasing lease: %v\n", err)
			return exitFailed
		}
		_ = auditor.Record(ctx, audit.EventLease, "release", name, map[string]any{"owner": owner})
		fmt.Fprintf(stdout, "released %s\n", name)
	}
	return exitOK
}

// runEventsCmd fetches pending bus events for a consumer and commits the
// offset after printing them.
// Usage: tiller events -consumer <id> [flags]
func runEventsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("events", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		consumer string
		dbPath   string
		limit    int
		commit   bool
	)
	cmd.StringVar(&consumer, "consumer", "", "Consumer name (REQUIRED)")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the state database")
	cmd.IntVar(&limit, "limit", 50, "Maximum events to fetch")
	cmd.BoolVar(&commit, "commit", true, "Advance the consumer offset after printing")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if consumer == "" {
		fmt.Fprintln(stderr, "Error: -consumer is required")
		cmd.Usage()
		return exitUsage
	}

	ctx := context.Background()
	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return exitFailed
	}
	defer db.Close()

	events, err := bus.NewLog(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing event log: %v\n", err)
		return exitFailed
	}

	batch, err := events.Fetch(ctx, consumer, limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error fetching events: %v\n", err)
		return exitFailed
	}

	for _, event := range batch {
		data, _ := json.Marshal(event)
		fmt.Fprintln(stdout, string(data))
	}

	if commit && len(batch) > 0 {
		last := batch[len(batch)-1].Seq
		if err := events.Commit(ctx, consumer, last); err != nil {
			fmt.Fprintf(stderr, "Error committing offset: %v\n", err)
			return exitFailed
		}
	}
	return exitOK
}
