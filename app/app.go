package netchat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/putto11262002/netchat/core"
)

type App struct {
	config  *Config
	db      *core.SQLiteDB
	context context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger

	session *core.Session
	cli     *CLI

	exit chan int

	cleanupFuncs []func(context.Context)
}

func New(ctx context.Context, config *Config, migrations fs.FS) *App {
	var err error
	app := &App{
		exit: make(chan int),
	}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context, app.cancel = context.WithCancel(ctx)

	if config == nil {
		var err error
		config, err = LoadConfig()
		if err != nil {
			failed(1, "failed to load config: %v\n", err)
		}
	}
	if err := config.Validate(); err != nil {
		failed(1, FormatValidationErrors(err))
	}
	app.config = config

	app.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))

	sqliteOptions := &core.SQLiteDBOption{
		Mode:        "rwc",
		Cache:       "shared",
		JournalMode: "WAL",
	}
	var unread core.UnreadStore
	app.db, err = core.NewSQLiteDB(app.config.SQLite.File, migrations, sqliteOptions)
	if err == nil {
		err = app.db.Migrate()
	}
	if err != nil {
		// Unread persistence is an enhancement, not a requirement; run with
		// in-memory counters rather than refusing to start.
		app.logger.Error(fmt.Sprintf("open unread database: %v", err))
		unread = core.NewMemoryUnreadStore()
	} else {
		app.AddCleanupFunc(func(ctx context.Context) {
			app.db.Close()
		})
		unread = core.NewSQLiteUnreadStore(app.db.DB, app.logger)
	}

	creds := core.NewFileCredentialStore(app.config.Credentials.File)
	token := func() string {
		c, err := creds.Load()
		if err != nil || c == nil {
			return ""
		}
		return c.Token
	}

	app.session = core.NewSession(app.context, core.SessionConfig{
		Self:      app.config.Username,
		Creds:     creds,
		Unread:    unread,
		Transport: core.NewWSTransport(app.config.WSURL(), app.logger),
		API:       core.NewAPIClient(app.config.Server, token, app.logger),
		Notifier:  SystemNotifier{},
		Redirect: func() {
			fmt.Fprintln(os.Stderr, "credentials cleared; sign in again to obtain a new token")
		},
		Logger: app.logger,
	})
	app.AddCleanupFunc(func(ctx context.Context) {
		app.session.Close()
	})

	app.cli = NewCLI(app.session, os.Stdin, os.Stdout)

	return app
}

func (app *App) Start() {
	if err := app.session.Connect(app.context); err != nil {
		if errors.Is(err, core.ErrAuth) {
			failed(1, "not signed in: %v\n", err)
		}
		failed(1, "connect: %v\n", err)
	}

	// listen for shutdown signal
	go func() {
		<-app.context.Done()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		var wg sync.WaitGroup

		for _, f := range app.cleanupFuncs {
			wg.Add(1)
			go func(f func(context.Context)) {
				defer wg.Done()
				f(closeCtx)
			}(f)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			app.logger.Info("app shutdown gracefully")
			app.exit <- 0
		case <-closeCtx.Done():
			app.logger.Info("app shutdown timed out")
			app.exit <- 1
		}
	}()

	app.cli.Run(app.context)
	app.cancel()

	code := <-app.exit
	os.Exit(code)
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}

func failed(code int, s string, args ...interface{}) {
	fmt.Printf(s, args...)
	os.Exit(code)
}
