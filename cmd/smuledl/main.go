// Command smuledl resolves and downloads Smule recordings.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/types"
)

// Exit codes let scripts tell a blocked request from a missing recording.
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitBlocked
	exitNotFound
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, types.ErrInvalidReference):
		return exitUsage
	case errs.IsBlocked(err):
		return exitBlocked
	case errs.IsNotFound(err), errs.StatusCode(err) == 404:
		return exitNotFound
	default:
		return exitFailure
	}
}
