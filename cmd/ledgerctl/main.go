package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"txguard/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
