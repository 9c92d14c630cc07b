// Package main provides the livechat command: the development relay, a terminal chat
// client and a token minting helper.
//
// Configuration comes from config.yaml (see --config), LIVECHAT_* environment variables
// and an optional .env file in the working directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
