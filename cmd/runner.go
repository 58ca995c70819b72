package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librec/internal/gateway"
	"github.com/desertthunder/librec/internal/remote"
	"github.com/desertthunder/librec/internal/repositories"
	"github.com/desertthunder/librec/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	gateway    *gateway.Gateway
	client     *remote.Client
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	gw := gateway.New(gateway.Config{
		RetryBase:       opts.Config.Gateway.RetryBase(),
		ServerErrorWait: opts.Config.Gateway.ServerErrorWait(),
		MaxRetries:      opts.Config.Gateway.MaxRetries,
		RequestsPerSec:  opts.Config.Gateway.RequestsPerSecond,
	}, opts.HTTPClient, opts.Logger)
	client := remote.NewClient(gw, opts.Config.Batch, opts.Logger)

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		gateway:    gw,
		client:     client,
		db:         opts.DB,
	}
}

// SetLogger replaces the Runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, syncCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureDB opens the snapshot database and applies migrations, once.
func (r *Runner) ensureDB() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	if err := repositories.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	r.db = db
	return db, nil
}

// restoreSession loads the persisted session and logs the gateway in with the
// remaining lifetime. An expired session is discarded.
func (r *Runner) restoreSession() error {
	db, err := r.ensureDB()
	if err != nil {
		return err
	}

	session, err := repositories.NewSessionRepository(db).Load()
	if err != nil {
		return fmt.Errorf("%w: run `auth login` first", shared.ErrUnauthorized)
	}

	now := time.Now()
	if !session.Live(now) {
		repositories.NewSessionRepository(db).Clear()
		return fmt.Errorf("%w: run `auth login` again", shared.ErrSessionExpired)
	}

	r.gateway.Login(session.Token, session.ExpiresAt.Sub(now))
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
