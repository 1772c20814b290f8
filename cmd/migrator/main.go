package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dualbase/internal/config"
	"dualbase/internal/dbtarget"
	"dualbase/internal/logging"
	"dualbase/internal/migration"
	"dualbase/internal/registry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "revert":
		err = revertCmd(args)
	case "generate":
		err = generateCmd(args)
	case "create":
		err = createCmd(args)
	case "status":
		err = statusCmd(args)
	case "history":
		err = historyCmd(args)
	case "health":
		err = healthCmd(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`dualbase migrator commands:
  run       - apply pending migrations for a target
  revert    - revert the most recently executed migration
  generate  - diff the declared schema and write a migration when it drifts
  create    - write a blank migration file for manual authoring
  status    - show pending and executed migrations
  history   - show the append-only execution log
  health    - probe both database connections

Flags are command specific; run "<cmd> -h" for details.`)
}

type commonFlags struct {
	fs     *flag.FlagSet
	config *string
	target *string
}

func newFlags(name string) commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return commonFlags{
		fs:     fs,
		config: fs.String("config", "", "path to YAML config (optional)"),
		target: fs.String("target", string(dbtarget.PostgreSQL), "database target (postgresql or mongodb)"),
	}
}

// setup parses flags and brings up config, logging and connections. The
// returned cleanup shuts the registry down.
func setup(f commonFlags, args []string) (context.Context, context.CancelFunc, *migration.Runner, dbtarget.Target, func(), error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, nil, nil, "", nil, err
	}
	target, err := dbtarget.Parse(*f.target)
	if err != nil {
		return nil, nil, nil, "", nil, err
	}

	cfg, err := config.Load(*f.config)
	if err != nil {
		return nil, nil, nil, "", nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	reg := registry.New(cfg, logger)
	if err := reg.Initialize(ctx); err != nil {
		stop()
		return nil, nil, nil, "", nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Migrations.Timeout)
		defer cancel()
		reg.Shutdown(shutdownCtx)
	}

	return ctx, stop, migration.NewRunner(reg, cfg, logger), target, cleanup, nil
}

func runCmd(args []string) error {
	f := newFlags("run")
	ctx, stop, runner, target, cleanup, err := setup(f, args)
	if err != nil {
		return err
	}
	defer stop()
	defer cleanup()

	applied, err := runner.Run(ctx, target)
	if err != nil {
		return err
	}
	fmt.Printf("%d migration(s) applied on %s\n", applied, target)
	return nil
}

func revertCmd(args []string) error {
	f := newFlags("revert")
	ctx, stop, runner, target, cleanup, err := setup(f, args)
	if err != nil {
		return err
	}
	defer stop()
	defer cleanup()

	name, err := runner.RevertLast(ctx, target)
	if err != nil {
		return err
	}
	fmt.Printf("reverted %s on %s\n", name, target)
	return nil
}

func generateCmd(args []string) error {
	f := newFlags("generate")
	name := f.fs.String("name", "", "migration name")
	ctx, stop, runner, target, cleanup, err := setup(f, args)
	if err != nil {
		return err
	}
	defer stop()
	defer cleanup()
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	res, err := runner.Generate(ctx, target, *name)
	if err != nil {
		return err
	}
	if !res.Created {
		fmt.Println("schema matches, nothing generated")
		return nil
	}
	fmt.Println("generated", res.FileName)
	return nil
}

// createCmd only touches the filesystem: no config file and no connections
// are needed.
func createCmd(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	targetFlag := fs.String("target", string(dbtarget.PostgreSQL), "database target (postgresql or mongodb)")
	dir := fs.String("dir", "./migrations", "migrations directory")
	name := fs.String("name", "", "migration name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := dbtarget.Parse(*targetFlag)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	var cfg config.Config
	cfg.Migrations.Dir = *dir
	runner := migration.NewRunner(nil, cfg, logging.New("info", "text"))
	fileName, err := runner.Create(target, *name)
	if err != nil {
		return err
	}
	fmt.Println("created", fileName)
	return nil
}

func statusCmd(args []string) error {
	f := newFlags("status")
	ctx, stop, runner, target, cleanup, err := setup(f, args)
	if err != nil {
		return err
	}
	defer stop()
	defer cleanup()

	pending, executed, err := runner.Status(ctx, target)
	if err != nil {
		return err
	}
	fmt.Printf("target %s: %d executed, %d pending\n", target, len(executed), len(pending))
	for _, name := range executed {
		fmt.Println("  executed:", name)
	}
	for _, name := range pending {
		fmt.Println("  pending: ", name)
	}
	return nil
}

func historyCmd(args []string) error {
	f := newFlags("history")
	ctx, stop, runner, target, cleanup, err := setup(f, args)
	if err != nil {
		return err
	}
	defer stop()
	defer cleanup()

	records, err := runner.History(ctx, target)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no history for", target)
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-4s  %-8s  %dms", rec.StartedAt.Format("2006-01-02 15:04:05"), rec.Direction, rec.Outcome, rec.DurationMS)
		if rec.Error != "" {
			line += "  " + rec.Error
		}
		fmt.Println(rec.Name, line)
	}
	return nil
}

func healthCmd(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg, logger)
	if err := reg.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Migrations.Timeout)
		defer cancel()
		reg.Shutdown(shutdownCtx)
	}()

	unhealthy := false
	for target, ok := range reg.AllHealth(ctx) {
		state := "ok"
		if !ok {
			state = "unhealthy"
			unhealthy = true
		}
		fmt.Printf("%-12s %s\n", target, state)
	}
	if unhealthy {
		return fmt.Errorf("one or more targets unhealthy")
	}
	return nil
}
