package main

import (
	"fmt"
	"io"
	"os"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// Exit codes shared by every subcommand.
const (
	exitOK       = 0
	exitFailed   = 1
	exitNotFound = 2
	exitUsage    = 3
)

// Run is the entrypoint for testing
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[1] {
	case "shape":
		return runShapeCmd(args[2:], stdin, stdout, stderr)
	case "gate":
		return runGateCmd(args[2:], stdout, stderr)
	case "validate-work-item":
		return runValidateCmd(args[2:], stdout, stderr)
	case "lease":
		if len(args) < 3 {
			_, _ = fmt.Fprintln(stderr, "Usage: tiller lease <acquire|renew|release> [flags]")
			return exitUsage
		}
		return runLeaseCmd(args[2:], stdout, stderr)
	case "events":
		return runEventsCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return exitUsage
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
	ColorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sTiller %s%s\n", ColorBold+ColorCyan, "v0.1.0", ColorReset)
	fmt.Fprintf(w, "%sShape before you commit. Verify before you act.%s\n", ColorGray, ColorReset)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	fmt.Fprintln(w, "  tiller <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "SHAPING")
	printCommand(w, "shape", "Interactive artifact shaping session (-session, -dir)")
	printCommand(w, "validate-work-item", "Validate a frozen work item file")

	printSection(w, "GATING")
	printCommand(w, "gate", "Run the entry gate against a commit manifest")
	printCommand(w, "events", "Fetch pending bus events for a consumer")

	printSection(w, "ORCHESTRATION")
	printCommand(w, "lease", "Acquire, renew, or release a named lease")
	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %s%-20s%s %s\n", ColorGreen, name, ColorReset, desc)
}
