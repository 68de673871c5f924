// Package main provides operator commands for the GameDB database:
// schema migrations, account creation and file based import/export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gamedb-api/internal/config"
	"github.com/gamedb-api/internal/database"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/internal/service"
	"github.com/gamedb-api/internal/storage"
	"github.com/gamedb-api/pkg/logger"
	flag "github.com/spf13/pflag"
)

const usage = `Usage: manage <command> [flags]

Commands:
  migrate up            apply all pending migrations
  migrate down          roll back the last migration
  migrate goto VERSION  migrate to a specific version
  createuser            create an account (--username, --password, --staff, --superuser)
  import FILE           import a JSON document, upserting games by title
  export [FILE]         write the JSON export to FILE or stdout
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "migrate" {
		err = runMigrate(db, cfg.Server.MigrationsPath, args)
	} else {
		services := service.NewServices(
			repository.New(db),
			storage.NewLocalCoverStore(cfg.Upload.Dir, log),
			cfg,
			log,
		)
		err = run(ctx, services, cmd, args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runMigrate(db *database.DB, path string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("migrate requires one of: up, down, goto")
	}

	switch args[0] {
	case "up":
		return db.RunMigrations(path)
	case "down":
		return db.MigrateDown(path)
	case "goto":
		if len(args) < 2 {
			return fmt.Errorf("migrate goto requires a version")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return db.MigrateToVersion(path, uint(version))
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

func run(ctx context.Context, services *service.Services, cmd string, args []string) error {
	switch cmd {
	case "createuser":
		return createUser(ctx, services, args)
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("import requires a file")
		}
		return importFile(ctx, services, args[0])
	case "export":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return exportFile(ctx, services, path)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func createUser(ctx context.Context, services *service.Services, args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	staff := fs.Bool("staff", false, "grant staff rights")
	superuser := fs.Bool("superuser", false, "grant superuser rights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := services.Auth.CreateUser(ctx, *username, *password, *staff, *superuser)
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
	return nil
}

func importFile(ctx context.Context, services *service.Services, path string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	report, err := services.Import.ImportAll(ctx, doc)
	if report != nil {
		fmt.Printf("created: %d\nupdated: %d\n", report.Created, report.Updated)
		for _, msg := range report.Errors {
			fmt.Printf("error: %s\n", msg)
		}
	}
	return err
}

func exportFile(ctx context.Context, services *service.Services, path string) error {
	if path == "" {
		return services.Export.WriteExport(ctx, os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := services.Export.WriteExport(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
