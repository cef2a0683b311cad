package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ddd/cmd/ddd/commands"
	"git.home.luguber.info/inful/ddd/internal/console"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{Printer: console.New(os.Stdout), Out: os.Stdout}
	parser, err := kong.New(cli,
		kong.Name("ddd"),
		kong.Description("Local build daemon: runs build and verify stages on demand and keeps compact logs for tools."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (%s, built %s)", version.Version, version.GitCommit, version.BuildTime)},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	err = kctx.Run(global, cli)
	if err == nil {
		return 0
	}
	var status commands.ExitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	return ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err)
}
