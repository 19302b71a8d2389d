package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/services"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	analyzerInstance *services.AnalyzerFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("AnalyzeManifest", analyzeManifest)
}

// main is required by the Go Functions Framework.
func main() {}

// analyzeManifest runs every manifest JSON uploaded to the watched bucket.
func analyzeManifest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		analyzerInstance, initErr = services.NewAnalyzer(context.Background())
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

	return analyzerInstance.ProcessManifestObject(ctx, gcsEvent)
}
