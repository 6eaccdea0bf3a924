package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	var cli CLI
	parser := kong.Parse(&cli,
		kong.Name("formstate"),
		kong.Description("Fill and check forms described by YAML or JSON definitions."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := parser.Run(&Global{Ctx: ctx, Logger: slog.Default()}, &cli)
	if err != nil {
		slog.Error("formstate failed", "command", parser.Command(), "error", err)
		os.Exit(1)
	}
}
