package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/finsight/internal/advisor"
	"github.com/avolkov/finsight/internal/api/middleware"
	"github.com/avolkov/finsight/internal/domain"
	"github.com/avolkov/finsight/internal/jobs"
	"github.com/avolkov/finsight/internal/llm"
	"github.com/avolkov/finsight/internal/normalize"
	"github.com/avolkov/finsight/internal/pipeline"
	"github.com/avolkov/finsight/internal/store"
)

// chatSystemPrompt frames the chat endpoint as a general financial
// advisor.
const chatSystemPrompt = "You are a helpful AI financial advisor. Provide concise, accurate financial advice based on best practices. Avoid making specific investment recommendations for individual stocks. Focus on educational content and general financial principles. Be friendly and empathetic while maintaining professionalism."

// Analyzer runs one CSV analysis. Implemented by *pipeline.Analyzer.
type Analyzer interface {
	AnalyzeCSV(ctx context.Context, csvData string) (*domain.AnalysisResult, error)
}

// TipSynthesizer produces savings tips. Implemented by *advisor.Advisor.
type TipSynthesizer interface {
	Synthesize(ctx context.Context, data advisor.SpendingData) ([]domain.SavingTip, error)
}

// ChatService relays a chat conversation. Implemented by *llm.Client.
type ChatService interface {
	Chat(ctx context.Context, system string, messages []llm.Message) (llm.Message, error)
}

// writeLLMError maps the error taxonomy of an upstream call onto HTTP
// statuses: missing API key is a server configuration problem, upstream
// and malformed-body failures are bad-gateway, anything else is a plain
// internal error.
func writeLLMError(w http.ResponseWriter, err error, fallback string) {
	var malformed *llm.MalformedResponseError
	var upstream *llm.UpstreamError

	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		middleware.WriteError(w, http.StatusInternalServerError, "API key configuration error")
	case errors.As(err, &malformed):
		middleware.WriteError(w, http.StatusBadGateway, "Model returned an unparseable response")
	case errors.As(err, &upstream):
		middleware.WriteError(w, http.StatusBadGateway, fallback)
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// AnalyzeHandler handles CSV analysis endpoints.
type AnalyzeHandler struct {
	analyzer  Analyzer
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAnalyzeHandler creates a new analysis handler.
func NewAnalyzeHandler(analyzer Analyzer, publisher jobs.Publisher, log zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:  analyzer,
		publisher: publisher,
		log:       log,
	}
}

// Analyze handles POST /api/transactions/analyze: the synchronous
// analysis round trip the dashboard performs on CSV upload.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSVData string `json:"csvData"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CSVData == "" {
		middleware.WriteError(w, http.StatusBadRequest, "CSV data is required")
		return
	}

	result, err := h.analyzer.AnalyzeCSV(r.Context(), req.CSVData)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyCSV) {
			middleware.WriteError(w, http.StatusBadRequest, "CSV data is required")
			return
		}
		h.log.Error().Err(err).Msg("CSV analysis failed")
		writeLLMError(w, err, "Failed to process transaction data")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// EnqueueAnalysis handles POST /api/analyses: the asynchronous variant
// for clients that poll instead of holding the connection open for the
// duration of the model call.
func (h *AnalyzeHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSVData  string `json:"csvData"`
		Filename string `json:"filename"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CSVData == "" {
		middleware.WriteError(w, http.StatusBadRequest, "CSV data is required")
		return
	}

	job := &jobs.AnalyzeCSVJob{
		Filename: req.Filename,
		CSVData:  req.CSVData,
	}

	if err := h.publisher.PublishAnalyzeCSV(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Int("csv_bytes", job.CSVBytes).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// TransactionsHandler handles transaction CRUD against the session store.
type TransactionsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(st *store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: st,
		log:   log,
	}
}

// List handles GET /api/transactions.
// The transaction array is returned directly for frontend compatibility.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Transactions())
}

// Analysis handles GET /api/analysis: the current category breakdown and
// summary, plus totals recomputed from the typed transactions the way
// the dashboard widgets do.
func (h *TransactionsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	analysis := h.store.Analysis()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categoryBreakdown": analysis.CategoryBreakdown,
		"summary":           analysis.Summary,
		"computedSummary":   domain.Summarize(h.store.Transactions()),
	})
}

// Add handles POST /api/transactions. The body is a loosely-shaped
// transaction object; it goes through the same defaulting rules as model
// output, except that a missing id becomes a UUID rather than an
// index-based one.
func (h *TransactionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txs := normalize.Transactions([]interface{}{raw})
	tx := txs[0]
	if id, _ := raw["id"].(string); id == "" {
		tx.ID = uuid.NewString()
	}

	h.store.AddTransaction(tx)
	h.saveStore(r.Context())

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Remove handles DELETE /api/transactions/{id}. Deletes are idempotent:
// removing an absent id answers the same as removing a present one.
func (h *TransactionsHandler) Remove(w http.ResponseWriter, r *http.Request, id string) {
	h.store.RemoveTransaction(id)
	h.saveStore(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Update handles PATCH /api/transactions/{id}. Unknown ids are a no-op.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.store.UpdateTransaction(id, patch) {
		h.log.Debug().Str("transaction_id", id).Msg("Update matched no transaction")
	}
	h.saveStore(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionsHandler) saveStore(ctx context.Context) {
	if err := h.store.Save(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to persist store snapshot")
	}
}

// SavingsHandler handles POST /api/savings/tips.
type SavingsHandler struct {
	synthesizer TipSynthesizer
	log         zerolog.Logger
}

// NewSavingsHandler creates a new savings handler.
func NewSavingsHandler(synthesizer TipSynthesizer, log zerolog.Logger) *SavingsHandler {
	return &SavingsHandler{
		synthesizer: synthesizer,
		log:         log,
	}
}

// Tips handles POST /api/savings/tips.
func (h *SavingsHandler) Tips(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionData *advisor.SpendingData `json:"transactionData"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if req.TransactionData == nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "Transaction data is required"})
		return
	}

	tips, err := h.synthesizer.Synthesize(r.Context(), *req.TransactionData)
	if err != nil {
		h.log.Error().Err(err).Msg("Savings tip synthesis failed")

		status := http.StatusBadGateway
		message := "Failed to generate savings tips"
		if errors.Is(err, llm.ErrMissingAPIKey) {
			status = http.StatusInternalServerError
			message = "API key configuration error"
		}
		middleware.WriteJSON(w, status, map[string]string{
			"message": message,
			"error":   err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"tips": tips})
}

// ChatHandler handles POST /api/chat.
type ChatHandler struct {
	chat ChatService
	log  zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  log,
	}
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []llm.Message `json:"messages"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one message is required")
		return
	}

	reply, err := h.chat.Chat(r.Context(), chatSystemPrompt, req.Messages)
	if err != nil {
		h.log.Error().Err(err).Msg("Chat completion failed")
		writeLLMError(w, err, "Failed to fetch chat completion")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": reply})
}

// JobsHandler handles job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
