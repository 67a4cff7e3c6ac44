package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tillerworks/tiller/pkg/audit"
	"github.com/tillerworks/tiller/pkg/bus"
	"github.com/tillerworks/tiller/pkg/config"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/shaping"
	"github.com/tillerworks/tiller/pkg/store"
)

// runShapeCmd drives an interactive shaping session. Plain lines are
// ingested as guidance; directives start with "/".
func runShapeCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("shape", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		sessionID string
		dir       string
		dbPath    string
	)
	cmd.StringVar(&sessionID, "session", "", "Session ID (REQUIRED)")
	cmd.StringVar(&dir, "dir", cfg.Root, "Directory frozen artifacts are written to")
	cmd.StringVar(&dbPath, "db", cfg.DatabasePath, "Path to the state database")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if sessionID == "" {
		fmt.Fprintln(stderr, "Error: -session is required")
		cmd.Usage()
		return exitUsage
	}

	ctx := context.Background()
	logger := slog.Default()

	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return exitFailed
	}
	defer db.Close()

	sessions, err := store.NewSessionStore(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing session store: %v\n", err)
		return exitFailed
	}
	events, err := bus.NewLog(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing event log: %v\n", err)
		return exitFailed
	}
	auditor := audit.NewLoggerWithWriter(stderr, cfg.Actor)

	session, err := sessions.Load(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		session = shaping.NewSession(sessionID)
		logger.Info("session created", "session", sessionID)
	case err != nil:
		fmt.Fprintf(stderr, "Error loading session: %v\n", err)
		return exitFailed
	default:
		logger.Info("session resumed", "session", sessionID, "state", session.State())
	}

	fmt.Fprintf(stdout, "session %s [%s]\n", session.ID(), session.State())
	fmt.Fprintln(stdout, "directives: /reveal /edit <line> /confirm-phases /freeze /state /quit")

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		done, code := shapeDispatch(ctx, session, line, dir, stdout, stderr, events, auditor)
		if err := sessions.Save(ctx, session); err != nil {
			fmt.Fprintf(stderr, "Error saving session: %v\n", err)
			return exitFailed
		}
		if done {
			return code
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Error reading input: %v\n", err)
		return exitFailed
	}
	return exitOK
}

// shapeDispatch applies one input line. It returns done=true when the
// loop should end, with the exit code to use.
func shapeDispatch(ctx context.Context, session *shaping.Session, line, dir string, stdout, stderr io.Writer, events *bus.Log, auditor audit.Logger) (bool, int) {
	directive, rest, _ := strings.Cut(line, " ")
	if !strings.HasPrefix(directive, "/") {
		if err := session.Ingest(line); err != nil {
			reportShapingError(stderr, err)
			return false, exitOK
		}
		fmt.Fprintf(stdout, "ok [%s %s]\n", session.State(), session.Altitude())
		return false, exitOK
	}

	switch directive {
	case "/state":
		fmt.Fprintf(stdout, "session %s [%s %s], %d turns\n",
			session.ID(), session.State(), session.Altitude(), session.Buffer().Len())
	case "/reveal":
		preview, err := session.Reveal()
		if err != nil {
			reportShapingError(stderr, err)
			return false, exitOK
		}
		fmt.Fprintln(stdout, preview)
	case "/edit":
		if rest == "" {
			fmt.Fprintln(stderr, "Usage: /edit <guidance line>")
			return false, exitOK
		}
		if err := session.Edit(rest); err != nil {
			reportShapingError(stderr, err)
			return false, exitOK
		}
		fmt.Fprintf(stdout, "ok [%s %s]\n", session.State(), session.Altitude())
	case "/confirm-phases":
		if err := session.ConfirmPhases(); err != nil {
			reportShapingError(stderr, err)
			return false, exitOK
		}
		fmt.Fprintln(stdout, "phases confirmed")
	case "/freeze":
		path, err := session.Freeze(dir)
		if err != nil {
			reportShapingError(stderr, err)
			return false, exitOK
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, pubErr := events.Publish(ctx, contracts.EventArtifactFrozen, map[string]any{
			"session_id": session.ID(),
			"path":       path,
		}, now)
		if pubErr != nil {
			fmt.Fprintf(stderr, "Warning: event publish failed: %v\n", pubErr)
		}
		_ = auditor.Record(ctx, audit.EventFreeze, "freeze", path, map[string]any{
			"session_id": session.ID(),
		})
		fmt.Fprintf(stdout, "frozen: %s\n", path)
		return true, exitOK
	case "/quit":
		return true, exitOK
	default:
		fmt.Fprintf(stderr, "Unknown directive: %s\n", directive)
	}
	return false, exitOK
}

func reportShapingError(stderr io.Writer, err error) {
	var ambiguity *shaping.AmbiguityError
	if errors.As(err, &ambiguity) {
		fmt.Fprintf(stderr, "? %s\n", ambiguity.Question())
		return
	}
	fmt.Fprintf(stderr, "rejected: %v\n", err)
}
