package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

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

	functions.HTTP("SweepExpiredBackups", sweepExpiredBackups)
}

// main is required by the Go Functions Framework.
func main() {}

func newArchiver(ctx context.Context) (*services.ArchiverFunction, error) {
	store, err := gcp.NewGCSStore(ctx)
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
	// The sweep never publishes, so no bus publisher is wired here.
	return services.NewArchiver(store, nil, config), nil
}

// sweepExpiredBackups is the scheduler-triggered HTTP entry point for the
// archive retention sweep.
func sweepExpiredBackups(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		archiverInstance, initErr = newArchiver(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: sweeper initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	deleted := archiverInstance.SweepExpired(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"deleted": deleted}); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
