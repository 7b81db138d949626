package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/compose"
	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/engine"
	"github.com/inboxlens/inboxlens/internal/llm"
	"github.com/inboxlens/inboxlens/internal/mailbox"
	"github.com/inboxlens/inboxlens/internal/server"
	"github.com/inboxlens/inboxlens/internal/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and webhook",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config.toml (default ~/.inboxlens/config.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path := serveConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// The index lives in memory only; restarting the server starts from
	// an empty window.
	db, err := store.OpenMemory()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	// Prefer a live Ollama for embeddings, fall back to the hashing
	// embedder so retrieval still works offline.
	var embedder engine.Embedder
	if engine.ProbeOllama(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel) {
		embedder = engine.NewOllamaEmbedder(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel, 384)
		fmt.Fprintf(os.Stderr, "  embedder: ollama (%s)\n", cfg.LLM.EmbeddingModel)
	} else {
		embedder = engine.NewHashEmbedder(384)
		fmt.Fprintln(os.Stderr, "  embedder: hashing (fallback)")
	}

	eng := engine.New(db, embedder)
	if cfg.Retrieval.ChunkSize > 0 {
		eng.SetChunkSize(cfg.Retrieval.ChunkSize)
	}

	deps := server.Deps{
		MaxFetch: cfg.Mail.MaxFetch,
		TopK:     cfg.Retrieval.TopK,
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), answers disabled\n", err)
	} else {
		deps.LLM = llmClient
		fmt.Fprintf(os.Stderr, "  llm: %s\n", cfg.LLM.Provider)
	}

	if cfg.Mail.User != "" && cfg.Mail.Password != "" {
		deps.Source = mailbox.NewIMAPSource(cfg.Mail.IMAPServer, cfg.Mail.User, cfg.Mail.Password)
		fmt.Fprintf(os.Stderr, "  mail: %s (%s)\n", cfg.Mail.IMAPServer, cfg.Mail.User)
	} else {
		fmt.Fprintln(os.Stderr, "warning: no mail credentials, refresh disabled")
	}

	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		deps.Sender = server.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
		fmt.Fprintln(os.Stderr, "  twilio: configured")
	}

	if llmClient != nil && cfg.SMTP.User != "" && cfg.SMTP.Password != "" {
		mailer := &compose.SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
		deps.Composer = compose.New(llmClient, mailer, cfg.SMTP.From, cfg.SMTP.From)
		fmt.Fprintln(os.Stderr, "  compose: enabled")
	}

	// Load the initial window before accepting traffic.
	if deps.Source != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		docs, err := deps.Source.FetchRecent(ctx, cfg.Mail.MaxFetch)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: initial mail load failed: %v\n", err)
		} else if len(docs) > 0 {
			stored, err := eng.Ingest(context.Background(), docs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: initial ingest failed: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "  loaded %d recent emails\n", stored)
			}
		}
	}

	srv := server.New(eng, deps, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "inboxlens serving on %s\n", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
