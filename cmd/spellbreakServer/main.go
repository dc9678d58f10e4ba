package main

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"spellbreak/config"
	"spellbreak/internal/db"
	"spellbreak/internal/logging"
	"spellbreak/internal/server"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the YAML configuration file",
		EnvVars: []string{"SPELLBREAK_CONFIG"},
	}

	app := &cli.App{
		Name:   "spellbreakServer",
		Usage:  "tournament results JSON:API server",
		Flags:  []cli.Flag{configFlag},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "migrate the database and serve HTTP",
				Flags:  []cli.Flag{configFlag},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database tables and exit",
				Flags:  []cli.Flag{configFlag},
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Setup(&cfg.Log); err != nil {
		return nil, nil, err
	}

	gdb, err := db.InitDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		closeDB(gdb)
		return nil, nil, err
	}
	return cfg, gdb, nil
}

func closeDB(gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}

func migrate(c *cli.Context) error {
	_, gdb, err := setup(c)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	log.Info("Database migrated")
	return nil
}

func serve(c *cli.Context) error {
	cfg, gdb, err := setup(c)
	if err != nil {
		return err
	}
	defer closeDB(gdb)

	publisher, closePublisher, err := server.NewPublisher(&cfg.NATS)
	if err != nil {
		return err
	}
	defer closePublisher()

	srv, err := server.New(cfg, gdb, publisher)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
