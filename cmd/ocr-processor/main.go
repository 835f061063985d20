package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/gcp"
	"github.com/acastillo/docpipeline/internal/services"
)

var (
	recognizerInstance *services.RecognizerFunction
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ProcessDocument", processDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// gcsEvent is the payload of a GCS object-finalize event.
type gcsEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

func newRecognizer(ctx context.Context) (*services.RecognizerFunction, error) {
	store, err := gcp.NewGCSStore(ctx)
	if err != nil {
		return nil, err
	}
	projectID := gcp.GetEnv("GCP_PROJECT", "")
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable must be set")
	}
	publisher, err := bus.NewPubSubPublisher(ctx, projectID, gcp.GetEnv("PUBSUB_TOPIC_NAME", "document-processing"))
	if err != nil {
		return nil, err
	}
	engine, err := gcp.NewVisionRecognizer(ctx)
	if err != nil {
		return nil, err
	}
	config := services.RecognizerConfig{
		IntakeBucket:  gcp.GetEnv("STORAGE_BUCKET_NAME", "document-processing"),
		ResultsBucket: gcp.GetEnv("RESULT_BUCKET_NAME", "document-results"),
	}
	return services.NewRecognizer(store, publisher, engine, config), nil
}

// processDocument is the Cloud Function entry point for intake arrivals.
func processDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		recognizerInstance, initErr = newRecognizer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event gcsEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	notice := bus.ArrivalNotice{
		DocumentID:  event.Name,
		ContentType: event.ContentType,
		Timestamp:   time.Now().UTC(),
	}
	if err := recognizerInstance.Process(ctx, notice); err != nil {
		if services.IsPermanent(err) {
			// Redelivery cannot fix a bad input; acknowledge and move on.
			slog.Error("Dropping unprocessable document", "document", event.Name, "error", err)
			return nil
		}
		return err
	}
	return nil
}
