package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/services"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type analyzer interface {
	Process(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
}

var (
	analyzerInstance analyzer
	once             sync.Once
	initErr          error

	newAnalyzer = func(ctx context.Context) (analyzer, error) {
		return services.NewAnalyzer(ctx)
	}
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Without FUNCTION_TARGET, the framework serves each function at /<name>.
	functions.HTTP("analyze", handleAnalyze)
	functions.HTTP("metrics", promhttp.Handler().ServeHTTP)
}

func main() {
	port := gcp.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// handleAnalyze is the HTTP handler for POST /analyze.
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		analyzerInstance, initErr = newAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Analyzer initialization failed", "error", initErr)
		writeError(w, http.StatusInternalServerError, "Internal Server Error: failed to initialize service")
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		req = models.AnalyzeRequest{}
	}

	res, err := analyzerInstance.Process(r.Context(), &req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "runId", res.RunID)
	}
}

// statusFor maps run-abort errors to client errors; anything else is a 500.
func statusFor(err error) int {
	var manifestErr *services.ManifestError
	switch {
	case errors.Is(err, services.ErrMissingPathsURL),
		errors.Is(err, services.ErrTooManyDocuments),
		errors.As(err, &manifestErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{OK: false, Error: message}); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
