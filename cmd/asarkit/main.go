package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcdonaldj/asarkit/internal/cli"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	// Ctrl-C cancels the running archive command and kills its process tree
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(version)
	c.Context = ctx
	c.Exit = func(code int) {
		stop()
		os.Exit(code)
	}
	c.Run()
}
