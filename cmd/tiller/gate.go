package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tillerworks/tiller/pkg/audit"
	"github.com/tillerworks/tiller/pkg/bus"
	"github.com/tillerworks/tiller/pkg/config"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/gate"
	"github.com/tillerworks/tiller/pkg/manifest"
	"github.com/tillerworks/tiller/pkg/policy"
	"github.com/tillerworks/tiller/pkg/roles"
	"github.com/tillerworks/tiller/pkg/store"
	"github.com/tillerworks/tiller/pkg/workitem"
)

// runGateCmd evaluates the entry gate for a commit manifest.
// Usage: tiller gate <gate_id> <manifest-path> [flags]
func runGateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("gate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		dbPath      string
		resultsPath string
		roleName    string
		jsonOutput  bool
	)
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the state database")
	cmd.StringVar(&resultsPath, "results", "gate_results.json", "Path to the gate results log")
	cmd.StringVar(&roleName, "role", string(roles.Gatekeeper), "Role the caller acts under")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if cmd.NArg() != 2 {
		fmt.Fprintln(stderr, "Usage: tiller gate <gate_id> <manifest-path> [flags]")
		return exitUsage
	}
	gateID, manifestPath := cmd.Arg(0), cmd.Arg(1)

	role, err := roles.ParseRole(roleName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := roles.Require(role, roles.CapEnforce); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if _, err := os.Stat(manifestPath); err != nil {
		fmt.Fprintf(stderr, "Manifest not found: %s\n", manifestPath)
		return exitNotFound
	}

	m, err := manifest.Parse(manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid manifest: %v\n", err)
		return exitFailed
	}

	ctx := context.Background()
	logger := slog.Default()

	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return exitFailed
	}
	defer db.Close()

	baselines, err := store.NewBaselineStore(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing baseline store: %v\n", err)
		return exitFailed
	}
	events, err := bus.NewLog(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing event log: %v\n", err)
		return exitFailed
	}
	evaluator, err := policy.NewEvaluator()
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing policy evaluator: %v\n", err)
		return exitFailed
	}

	now := time.Now().UTC().Format(time.RFC3339)
	runner := gate.NewRunner(gate.Config{
		Validator:  workitem.New(),
		Baselines:  baselines,
		Results:    gate.NewResultsLog(resultsPath),
		Policy:     evaluator,
		RecordedAt: now,
	})

	result, err := runner.RunEntry(ctx, gateID, m)
	if err != nil {
		fmt.Fprintf(stderr, "Error recording gate result: %v\n", err)
		return exitFailed
	}

	kind := contracts.EventGateFailed
	if result.Passed() {
		kind = contracts.EventGatePassed
	}
	if _, err := events.Publish(ctx, kind, map[string]any{
		"gate_id": result.GateID,
		"reason":  result.Reason,
	}, now); err != nil {
		fmt.Fprintf(stderr, "Warning: event publish failed: %v\n", err)
	}

	auditor := audit.NewLoggerWithWriter(stderr, cfg.Actor)
	_ = auditor.Record(ctx, audit.EventGate, "run", gateID, map[string]any{
		"status": string(result.Status),
		"reason": result.Reason,
	})
	logger.Info("gate evaluated", "gate", gateID, "status", result.Status, "reason", result.Reason)

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else if result.Passed() {
		fmt.Fprintf(stdout, "PASS %s: %s\n", result.GateID, result.Reason)
	} else {
		fmt.Fprintf(stdout, "FAIL %s: %s\n", result.GateID, result.Reason)
	}

	if !result.Passed() {
		return exitFailed
	}
	return exitOK
}

// runValidateCmd checks one work item file against the structural rules.
// Usage: tiller validate-work-item <path>
func runValidateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("validate-work-item", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output report as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if cmd.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: tiller validate-work-item <path> [flags]")
		return exitUsage
	}
	path := cmd.Arg(0)

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(stderr, "Work item not found: %s\n", path)
		return exitNotFound
	}

	report, err := workitem.New().Validate(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading work item: %v\n", err)
		return exitNotFound
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else if report.OK {
		fmt.Fprintf(stdout, "valid: %s\n", report.ID)
	} else {
		for _, v := range report.Violations {
			fmt.Fprintf(stdout, "violation: %s\n", v)
		}
	}

	if !report.OK {
		return exitFailed
	}
	return exitOK
}
