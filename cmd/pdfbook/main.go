package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	env := DefaultEnv()

	// Configure GOMAXPROCS before the fetch pool is sized from it.
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if wantsVerbose(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(env.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := cancelOnSignal(context.Background())
	code := run(ctx, os.Args, env)
	stop()
	os.Exit(code)
}

// run dispatches the command in args[1] and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "build":
		if err := runBuild(ctx, rest, env); err != nil {
			fmt.Fprintln(env.Stderr, "error:", err)
			return exitCodeFor(err)
		}
		return ExitSuccess
	case "doctor":
		return runDoctorCmd(rest, env)
	case "presets":
		printPresets(env.Stdout)
		return ExitSuccess
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "pdfbook %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(rest, env)
		return ExitSuccess
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

// wantsVerbose reports whether -v or --verbose appears before a "--".
func wantsVerbose(args []string) bool {
	for _, a := range args {
		switch a {
		case "--":
			return false
		case "-v", "--verbose":
			return true
		}
	}
	return false
}
