package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/gcp"
	"github.com/acastillo/docpipeline/internal/services"
)

var (
	extractorInstance *services.ExtractorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ExtractDocumentInfo", extractDocumentInfo)
}

// main is required by the Go Functions Framework.
func main() {}

type pubSubEvent struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func newExtractor(ctx context.Context) (*services.ExtractorFunction, error) {
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
	engine, err := gcp.NewDocAIExtractor(ctx, gcp.DocAIConfig{
		ProjectID:   projectID,
		Location:    gcp.GetEnv("DOCUMENT_AI_LOCATION", "us"),
		ProcessorID: gcp.GetEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
	})
	if err != nil {
		return nil, err
	}
	config := services.ExtractorConfig{
		IntakeBucket:  gcp.GetEnv("STORAGE_BUCKET_NAME", "document-processing"),
		ResultsBucket: gcp.GetEnv("RESULT_BUCKET_NAME", "document-results"),
	}
	return services.NewExtractor(store, publisher, engine, config), nil
}

// extractDocumentInfo is the Cloud Function entry point for the extraction stage.
func extractDocumentInfo(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		extractorInstance, initErr = newExtractor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event pubSubEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	msg, err := bus.Decode(event.Message.Data)
	if err != nil {
		slog.Error("Rejecting invalid message payload", "error", err)
		return nil
	}
	complete, ok := msg.(bus.StageComplete)
	if !ok {
		slog.Info("Ignoring message kind not handled by this stage", "kind", msg.MessageKind())
		return nil
	}

	if err := extractorInstance.Process(ctx, complete); err != nil {
		if services.IsPermanent(err) {
			slog.Error("Dropping unprocessable message", "document", complete.DocumentID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
