package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/logger"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	qaTriggerInstance *services.QATriggerFunction
	once              sync.Once
	initErr           error
)

func init() {
	if _, err := logger.Setup(os.Stdout, gcp.GetEnv("LOG_LEVEL", "info"), "json"); err != nil {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
		slog.Warn("Falling back to default logging", "error", err)
	}

	functions.CloudEvent("GenerateQA", generateQA)
}

// main is required by the Go Functions Framework.
func main() {}

// generateQA is the Cloud Function entry point for object-finalized events.
func generateQA(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		qaTriggerInstance, initErr = services.NewQATrigger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs with context; returning the error marks the invocation failed.
	return qaTriggerInstance.Process(ctx, gcsEvent)
}
