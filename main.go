package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtleson01/bird-app/cmd"
	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/buildinfo"
)

// Set by ldflags at build time
var (
	version   = buildinfo.UnknownValue
	buildDate = buildinfo.UnknownValue
	commit    = buildinfo.UnknownValue
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := app.NewContext(buildinfo.NewContext(version, buildDate, commit))
	defer func() {
		if err := appCtx.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}()

	rootCmd := cmd.RootCommand(appCtx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
