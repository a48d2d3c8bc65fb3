package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/resbuilder/cmd/resbuilder/commands"
	"git.home.luguber.info/inful/resbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/resbuilder/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("resbuilder"),
		kong.Description("Minify and obfuscate resource scripts into build/ and rewrite their references."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	global.Logger = slog.Default()
	if err := parser.Run(global, cli); err != nil {
		cancel()
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
