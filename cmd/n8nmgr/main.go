package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lukisch/n8n-workflow-manager/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}
