package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/avolkov/finsight/internal/advisor"
	"github.com/avolkov/finsight/internal/api/handlers"
	"github.com/avolkov/finsight/internal/api/middleware"
	"github.com/avolkov/finsight/internal/config"
	"github.com/avolkov/finsight/internal/jobs"
	"github.com/avolkov/finsight/internal/jobs/inmemory"
	"github.com/avolkov/finsight/internal/llm"
	"github.com/avolkov/finsight/internal/logger"
	"github.com/avolkov/finsight/internal/pipeline"
	"github.com/avolkov/finsight/internal/store"
)

func main() {
	// Parse command-line flags
	flags := pflag.NewFlagSet("api", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "Path to a config file")
	flags.String("port", "8080", "HTTP server port")
	flags.String("snapshot_uri", "", "Snapshot location (file path or gs:// URI)")
	_ = flags.Parse(os.Args[1:])

	// Initialize logger
	log := logger.New()

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Initialize the session store, restoring the previous snapshot when
	// one is configured
	st := store.New(store.NewSnapshot(cfg.SnapshotURI), log)
	st.Load(ctx)

	// Initialize the model client
	client, err := llm.New(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	analyzer := pipeline.NewAnalyzer(client, st, log)
	tipAdvisor := advisor.New(client, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing analysis jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		analysisJob, ok := job.(*jobs.AnalyzeCSVJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", analysisJob.JobID).
			Str("filename", analysisJob.Filename).
			Int("csv_bytes", analysisJob.CSVBytes).
			Msg("Processing analysis job")

		result, err := analyzer.AnalyzeCSV(ctx, analysisJob.CSVData)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", analysisJob.JobID).
				Msg("Analysis job failed")
			return err
		}

		analysisJob.Result = result

		log.Info().
			Str("job_id", analysisJob.JobID).
			Int("transaction_count", len(result.Transactions)).
			Msg("Analysis job completed successfully")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	analyzeHandler := handlers.NewAnalyzeHandler(analyzer, jobQueue, log)
	transactionsHandler := handlers.NewTransactionsHandler(st, log)
	savingsHandler := handlers.NewSavingsHandler(tipAdvisor, log)
	chatHandler := handlers.NewChatHandler(client, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Analysis endpoints
	mux.HandleFunc("/api/transactions/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			analyzeHandler.Analyze(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analyses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			analyzeHandler.EnqueueAnalysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.Analysis(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Add(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		// Extract transaction ID from path
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}

		switch r.Method {
		case http.MethodDelete:
			transactionsHandler.Remove(w, r, id)
		case http.MethodPatch:
			transactionsHandler.Update(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Savings tips endpoint
	mux.HandleFunc("/api/savings/tips", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			savingsHandler.Tips(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Chat endpoint
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.Chat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	// Persist the final store state
	if err := st.Save(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to persist store snapshot")
	}

	log.Info().Msg("Server exited")
}
