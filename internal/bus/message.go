// Package bus defines the control messages exchanged over the shared
// document-processing topic and the publisher used to emit them.
//
// Payloads are a tagged union of message kinds. Decode validates the kind
// and required fields at the boundary so malformed or unknown payloads are
// rejected before they reach stage logic.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/acastillo/docpipeline/internal/models"
)

// Kind discriminates the message union on the wire.
type Kind string

const (
	KindArrival       Kind = "arrival"
	KindStageComplete Kind = "stage_complete"
)

// Stage names carried in completion messages.
const (
	StageRecognition = "recognition"
	StageArchive     = "archive"
	StageExtraction  = "extraction"
)

// Completion statuses. The set is closed; Decode rejects anything else.
const (
	StatusOCRCompleted        = "ocr_completed"
	StatusBackupCompleted     = "backup_completed"
	StatusExtractionCompleted = "extraction_completed"
)

// Message is the tagged union of payloads carried on the topic.
type Message interface {
	MessageKind() Kind
}

// ArrivalNotice announces that a new document landed in the intake area.
type ArrivalNotice struct {
	Kind         Kind                `json:"kind"`
	DocumentID   string              `json:"document_id"`
	ContentType  string              `json:"content_type,omitempty"`
	DocumentType models.DocumentType `json:"document_type,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// MessageKind implements Message.
func (ArrivalNotice) MessageKind() Kind { return KindArrival }

// StageComplete signals that one pipeline stage finished for a document.
// It is immutable once published; redelivery and reordering are expected,
// so consumers must stay idempotent.
type StageComplete struct {
	Kind            Kind                `json:"kind"`
	DocumentID      string              `json:"document_id"`
	DocumentType    models.DocumentType `json:"document_type,omitempty"`
	Stage           string              `json:"stage"`
	Status          string              `json:"status"`
	ArtifactPath    string              `json:"produced_artifact_path,omitempty"`
	TextPreview     string              `json:"text_preview,omitempty"`
	ExtractedFields []string            `json:"extracted_fields,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
}

// MessageKind implements Message.
func (StageComplete) MessageKind() Kind { return KindStageComplete }

// Encode serializes a message, stamping its kind discriminator.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case ArrivalNotice:
		m.Kind = KindArrival
		return json.Marshal(m)
	case *ArrivalNotice:
		c := *m
		c.Kind = KindArrival
		return json.Marshal(c)
	case StageComplete:
		m.Kind = KindStageComplete
		return json.Marshal(m)
	case *StageComplete:
		c := *m
		c.Kind = KindStageComplete
		return json.Marshal(c)
	default:
		return nil, fmt.Errorf("bus: cannot encode message of type %T", msg)
	}
}

// Decode parses and validates a payload from the topic. Unknown kinds and
// structurally invalid messages fail here, never inside a stage handler.
func Decode(data []byte) (Message, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("bus: malformed message payload: %w", err)
	}

	switch probe.Kind {
	case KindArrival:
		var m ArrivalNotice
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("bus: malformed arrival notice: %w", err)
		}
		if m.DocumentID == "" {
			return nil, fmt.Errorf("bus: arrival notice missing document_id")
		}
		return m, nil
	case KindStageComplete:
		var m StageComplete
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("bus: malformed stage-complete message: %w", err)
		}
		if m.DocumentID == "" {
			return nil, fmt.Errorf("bus: stage-complete message missing document_id")
		}
		switch m.Status {
		case StatusOCRCompleted, StatusBackupCompleted, StatusExtractionCompleted:
		default:
			return nil, fmt.Errorf("bus: unknown stage-complete status %q", m.Status)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("bus: unknown message kind %q", probe.Kind)
	}
}
