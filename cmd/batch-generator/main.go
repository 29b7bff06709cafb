package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/logger"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

var (
	batchInstance *services.BatchFunction
	once          sync.Once
	initErr       error
)

func init() {
	if _, err := logger.Setup(os.Stdout, gcp.GetEnv("LOG_LEVEL", "info"), "json"); err != nil {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
		slog.Warn("Falling back to default logging", "error", err)
	}

	functions.HTTP("HandleGenerateBatch", handleGenerateBatch)
}

func main() {}

// handleGenerateBatch is the HTTP handler for batch generation.
func handleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		batchInstance, initErr = services.NewBatchGenerator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: batch generator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := batchInstance.Process(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrBadRequest) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Batch processing failed", "error", err, "executionId", req.ExecutionID)
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error(
			"Failed to write response",
			"error", err,
			"runId", res.RunID,
			"executionId", req.ExecutionID,
		)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
