package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/arcanaworks/grimoire/plugin/vectorstore"
	"github.com/arcanaworks/grimoire/plugin/websearch"
	"github.com/arcanaworks/grimoire/rag"
	"github.com/arcanaworks/grimoire/server"
	"github.com/arcanaworks/grimoire/server/auth"
	"github.com/arcanaworks/grimoire/server/profile"
	apiv1 "github.com/arcanaworks/grimoire/server/router/api/v1"
	"github.com/arcanaworks/grimoire/server/runner/ingest"
	"github.com/arcanaworks/grimoire/store"
	"github.com/arcanaworks/grimoire/store/db/mysql"
	"github.com/arcanaworks/grimoire/store/db/postgres"
	"github.com/arcanaworks/grimoire/store/db/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "A rules oracle for Dungeons and Dragons 5th Edition",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	prof, err := profile.Load()
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	setupLogger(prof)

	if err := os.MkdirAll(prof.Data, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	driver, err := newDBDriver(prof)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer driver.Close()
	if err := driver.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	st := store.New(driver)

	embedFn := chromem.NewEmbeddingFuncOllama(prof.EmbedModel, prof.OllamaURL)
	index, err := vectorstore.New(prof.Data, embedFn)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}

	model, err := openai.New(
		openai.WithBaseURL(prof.LLMBaseURL),
		openai.WithToken(prof.LLMAPIKey),
		openai.WithModel(prof.LLMModel),
	)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	sourceTimeout := time.Duration(prof.SourceTimeoutSec) * time.Second
	semantic := rag.NewSemanticSource(index, prof.SemanticLimit)
	web := rag.NewWebSource(websearch.NewClient(sourceTimeout), prof.WebResults)
	aggregator := rag.NewAggregator(semantic, web, sourceTimeout)

	pipeline := rag.NewPipeline(
		rag.NewIntentGate(model),
		rag.NewEngine(model, aggregator),
		st,
	)

	authenticator := auth.New(prof.KeycloakURL, prof.KeycloakRealm)
	ingestRunner := ingest.NewRunner(index, prof.CorpusDir)

	api := apiv1.NewAPIV1Service(prof, st, authenticator, pipeline, ingestRunner)
	srv := server.NewServer(prof, api)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		srv.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}

func setupLogger(prof *profile.Profile) {
	level := slog.LevelInfo
	if prof.Mode == "dev" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newDBDriver(prof *profile.Profile) (store.Driver, error) {
	switch prof.Driver {
	case "sqlite":
		dsn := prof.DSN
		if dsn == "" {
			dsn = filepath.Join(prof.Data, "grimoire.db")
		}
		return sqlite.New(dsn)
	case "postgres":
		return postgres.New(prof.DSN)
	case "mysql":
		return mysql.New(prof.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", prof.Driver)
	}
}
