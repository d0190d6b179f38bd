package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/mailer"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/pkg/logger"
	"github.com/rs/zerolog"
)

// app is everything a command needs once configuration is loaded
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *database.DB
	services *service.Services
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

type commandContext struct {
	open func() (*app, error)

	once sync.Once
	app  *app
	err  error
}

func newCommandContext(open func() (*app, error)) *commandContext {
	return &commandContext{open: open}
}

func (c *commandContext) ensureApp() (*app, error) {
	c.once.Do(func() {
		c.app, c.err = c.open()
	})
	return c.app, c.err
}

func (c *commandContext) withServices(fn func(*app) error) error {
	a, err := c.ensureApp()
	if err != nil {
		return err
	}
	return fn(a)
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.close()
	}
}

// openApp connects to the configured database and wires the services.
// Logs go to stderr so command output stays clean.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.Log.Level,
		Format: "pretty",
		Env:    cfg.Log.Env,
		Out:    os.Stderr,
	})

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	repos := repository.New(db)
	sender := mailer.New(cfg.Mail, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		services: service.NewServices(repos, sender, cfg, log),
	}, nil
}
