package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/gcp"
	"github.com/acastillo/docpipeline/internal/services"
)

var (
	archiverInstance *services.ArchiverFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("BackupDocument", backupDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// pubSubEvent is the CloudEvent payload for a Pub/Sub-triggered function.
// The message data arrives base64-encoded and decodes transparently.
type pubSubEvent struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func newArchiver(ctx context.Context) (*services.ArchiverFunction, error) {
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
	retentionDays, err := strconv.Atoi(gcp.GetEnv("RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_DAYS: %w", err)
	}
	config := services.ArchiverConfig{
		IntakeBucket:  gcp.GetEnv("STORAGE_BUCKET_NAME", "document-processing"),
		ResultsBucket: gcp.GetEnv("RESULT_BUCKET_NAME", "document-results"),
		ArchiveBucket: gcp.GetEnv("BACKUP_BUCKET_NAME", "document-backup"),
		RetentionDays: retentionDays,
	}
	return services.NewArchiver(store, publisher, config), nil
}

// backupDocument is the Cloud Function entry point for the archive stage.
func backupDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		archiverInstance, initErr = newArchiver(context.Background())
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
		// A payload that fails boundary validation will never become valid;
		// acknowledge it so the bus does not redeliver forever.
		slog.Error("Rejecting invalid message payload", "error", err)
		return nil
	}
	complete, ok := msg.(bus.StageComplete)
	if !ok {
		slog.Info("Ignoring message kind not handled by this stage", "kind", msg.MessageKind())
		return nil
	}

	if err := archiverInstance.Process(ctx, complete); err != nil {
		if services.IsPermanent(err) {
			slog.Error("Dropping unprocessable message", "document", complete.DocumentID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
