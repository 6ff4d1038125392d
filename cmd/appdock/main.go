package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/daemon"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"appdock.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	Server  string `short:"s" help:"Daemon address for client commands" default:"http://127.0.0.1:7600"`

	Serve struct{} `cmd:"" help:"Run the appdock daemon"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Install struct {
		App    string `arg:"" help:"Application id from the catalog"`
		Script string `help:"Path to an installer script overriding the catalog"`
	} `cmd:"" help:"Install an application"`

	Launch struct {
		App string `arg:"" help:"Application id"`
	} `cmd:"" help:"Launch an installed application"`

	Stop struct {
		App string `arg:"" help:"Application id"`
	} `cmd:"" help:"Stop a running application"`

	Uninstall struct {
		App string `arg:"" help:"Application id"`
	} `cmd:"" help:"Uninstall an application"`

	Cancel struct {
		Job uint64 `arg:"" help:"Id of the queued job to cancel"`
	} `cmd:"" help:"Cancel a queued job"`

	Status struct {
		Job uint64 `arg:"" optional:"" help:"Job id; omit for the full state snapshot"`
	} `cmd:"" help:"Show a job's status or the full application snapshot"`

	Catalog struct {
		Query string `arg:"" optional:"" help:"Search term"`
	} `cmd:"" help:"Search the application catalog"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "serve":
		err = runServe(logger)
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "install <app>":
		err = runSubmit("install", CLI.Install.App, CLI.Install.Script, 0)
	case "launch <app>":
		err = runSubmit("launch", CLI.Launch.App, "", 0)
	case "stop <app>":
		err = runSubmit("stop", CLI.Stop.App, "", 0)
	case "uninstall <app>":
		err = runSubmit("uninstall", CLI.Uninstall.App, "", 0)
	case "cancel <job>":
		err = runSubmit("cancel", "", "", CLI.Cancel.Job)
	case "status", "status <job>":
		err = runStatus(CLI.Status.Job)
	case "catalog", "catalog <query>":
		err = runCatalog(CLI.Catalog.Query)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// runServe loads configuration and runs the daemon until SIGINT/SIGTERM.
func runServe(logger *slog.Logger) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, CLI.Config, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
