// Command server runs the demo GraphQL server: a small blog schema
// (users, posts, tags) whose relation fields resolve through the
// batch-coalescing loaders.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	gql "github.com/graphql-go/graphql"
	gqlhandler "github.com/graphql-go/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"graphloader/internal/config"
	"graphloader/internal/logging"
	"graphloader/internal/middleware"
	"graphloader/internal/observability"
	"graphloader/internal/predicate"
	"graphloader/internal/relation"
	"graphloader/internal/resolver"
	"graphloader/internal/sqlstore"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("graphloader %s (%s)\n", Version, Commit)
		return nil
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	ctx := context.Background()

	var providers *observability.Providers
	if cfg.Observability.Enabled {
		providers, err = observability.Setup(ctx, observability.Config{
			ServiceName:      cfg.Observability.ServiceName,
			ServiceVersion:   cfg.Observability.ServiceVersion,
			Environment:      cfg.Observability.Environment,
			TraceSampleRatio: cfg.Observability.TraceSampleRatio,
			OTLP: observability.OTLPConfig{
				Endpoint: cfg.Observability.OTLP.Endpoint,
				Protocol: cfg.Observability.OTLP.Protocol,
				Insecure: cfg.Observability.OTLP.Insecure,
				Timeout:  cfg.Observability.OTLP.Timeout,
			},
		})
		if err != nil {
			return fmt.Errorf("set up observability: %w", err)
		}
		defer func() {
			if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
				slog.Error("observability shutdown", slog.String("error", shutdownErr.Error()))
			}
		}()
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if providers != nil {
		logCfg.LoggerProvider = providers.Logger
	}
	logger := logging.New(logCfg)
	logger.Info("starting graphloader",
		slog.String("version", Version),
		slog.String("addr", cfg.Server.Addr()),
	)

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	storeOpts := []sqlstore.Option{sqlstore.WithMaxInClause(cfg.Store.MaxInClause)}
	if !cfg.Store.WindowFunctions {
		storeOpts = append(storeOpts, sqlstore.WithoutWindowFunctions())
	}
	store := sqlstore.New(sqlstore.NewDBExecutor(db), storeOpts...)

	var loaderMetrics *observability.LoaderMetrics
	var requestMetrics *observability.RequestMetrics
	if cfg.Observability.Enabled {
		if loaderMetrics, err = observability.NewLoaderMetrics(); err != nil {
			return fmt.Errorf("init loader metrics: %w", err)
		}
		if requestMetrics, err = observability.NewRequestMetrics(); err != nil {
			return fmt.Errorf("init request metrics: %w", err)
		}
	}

	schema, err := blogSchema(store, cfg, loaderMetrics)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	graphqlHandler := gqlhandler.New(&gqlhandler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/graphql", middleware.Chain(
		graphqlHandler,
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.Metrics(requestMetrics),
		middleware.LoaderScope,
	))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	var handler http.Handler = mux
	if cfg.Observability.Enabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sql.DB
	var err error
	if cfg.Observability.Enabled {
		db, err = otelsql.Open("mysql", dsn,
			otelsql.WithAttributes(semconv.DBSystemMySQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
			otelsql.WithSQLCommenter(true),
		)
		if err == nil {
			_, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL))
		}
	} else {
		db, err = sql.Open("mysql", dsn)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	return db, nil
}

// blogSchema declares the demo entities. Every relation shape appears
// once: user.posts (one-to-many), post.user (many-to-one), post.tags
// and tag.posts (many-to-many).
func blogSchema(store *sqlstore.Store, cfg *config.Config, hooks *observability.LoaderMetrics) (gql.Schema, error) {
	opts := []resolver.BuilderOption{resolver.WithLimits(cfg.Pagination.Limits())}
	if hooks != nil {
		opts = append(opts, resolver.WithHooks(hooks))
	}
	b := resolver.NewBuilder(store, opts...)

	postColumns := []string{"id", "title", "body", "published", "author_id"}
	postTags := &sqlstore.JoinSpec{
		Table:           "post_tags",
		ParentKeyColumn: "post_id",
		ChildKeyColumn:  "tag_id",
		TargetKeyColumn: "id",
	}
	tagPosts := &sqlstore.JoinSpec{
		Table:           "post_tags",
		ParentKeyColumn: "tag_id",
		ChildKeyColumn:  "post_id",
		TargetKeyColumn: "id",
	}

	if err := b.AddEntity(resolver.Entity{
		Name:  "User",
		Table: "users",
		Columns: []resolver.Column{
			{Name: "id", Type: gql.Int},
			{Name: "name", Type: gql.String},
			{Name: "email", Type: gql.String},
		},
		Filter: []resolver.FilterField{
			{Name: "nameContains", Column: "name", Op: predicate.OpContains, Type: gql.String},
		},
		Relations: []relation.Descriptor{
			{
				Kind:       relation.OneToMany,
				Table:      "posts",
				Columns:    postColumns,
				ForeignKey: "author_id",
			},
		},
	}); err != nil {
		return gql.Schema{}, err
	}

	if err := b.AddEntity(resolver.Entity{
		Name:  "Post",
		Table: "posts",
		Columns: []resolver.Column{
			{Name: "id", Type: gql.Int},
			{Name: "title", Type: gql.String},
			{Name: "body", Type: gql.String},
			{Name: "published", Type: gql.Boolean},
			{Name: "author_id", Type: gql.Int},
		},
		Filter: []resolver.FilterField{
			{Name: "published", Column: "published", Op: predicate.OpEq, Type: gql.Boolean},
			{Name: "titleContains", Column: "title", Op: predicate.OpContains, Type: gql.String},
			{Name: "idIn", Column: "id", Op: predicate.OpIn, Type: gql.Int},
		},
		Relations: []relation.Descriptor{
			{
				Kind:       relation.ManyToOne,
				Table:      "users",
				Columns:    []string{"id", "name", "email"},
				ForeignKey: "author_id",
			},
			{
				Kind:     relation.ManyToMany,
				Table:    "tags",
				Columns:  []string{"id", "name"},
				Junction: postTags,
			},
		},
	}); err != nil {
		return gql.Schema{}, err
	}

	if err := b.AddEntity(resolver.Entity{
		Name:  "Tag",
		Table: "tags",
		Columns: []resolver.Column{
			{Name: "id", Type: gql.Int},
			{Name: "name", Type: gql.String},
		},
		Relations: []relation.Descriptor{
			{
				Kind:     relation.ManyToMany,
				Table:    "posts",
				Columns:  postColumns,
				Junction: tagPosts,
			},
		},
	}); err != nil {
		return gql.Schema{}, err
	}

	return b.Schema()
}
