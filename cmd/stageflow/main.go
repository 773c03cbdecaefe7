package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/cli"
	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/alexanderramin/stageflow/internal/clock"
	"github.com/alexanderramin/stageflow/internal/config"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/notify"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/alexanderramin/stageflow/internal/workflow"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	workflows, err := workflow.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("loading default workflow: %w", err)
	}
	if cfg.WorkflowFile != "" {
		def, err := workflow.LoadDefinitionFile(cfg.WorkflowFile)
		if err != nil {
			return err
		}
		if err := workflows.Register(def); err != nil {
			return err
		}
	}

	var sink audit.Sink
	switch cfg.Audit {
	case config.AuditSlog:
		sink = audit.NewSlogSink(logger)
	case config.AuditDB:
		sink = audit.NewSQLiteSink(database)
	case config.AuditBoth:
		sink = audit.Multi(audit.NewSlogSink(logger), audit.NewSQLiteSink(database))
	default:
		sink = audit.Noop{}
	}

	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.LogUseCases {
		observer = service.NewLogUseCaseObserver(logger)
	}

	// Styled output only when stdout is a terminal.
	formatter.SetColor(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	outbox := notify.NewOutbox(database)
	deps := service.Deps{
		DB:        database,
		UoW:       db.NewSQLiteUnitOfWork(database),
		Workflows: workflows,
		Clock:     clock.System{},
		Audit:     sink,
		Notifier:  outbox,
		Logger:    logger,
		Observer:  observer,
	}

	app := cli.NewServiceApp(deps, service.NewRoleService(repository.NewSQLiteUserRoleRepo(database)))
	app.Inbox = outbox
	if cfg.Audit == config.AuditDB || cfg.Audit == config.AuditBoth {
		app.AuditDB = database
	}
	app.DefaultUser = cfg.User

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
