package services

import (
	"context"
	"errors"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

// capturePublisher records every published message.
type capturePublisher struct {
	PublishFunc func(ctx context.Context, msg bus.Message) error
	Messages    []bus.Message
}

func (p *capturePublisher) Publish(ctx context.Context, msg bus.Message) error {
	if p.PublishFunc != nil {
		if err := p.PublishFunc(ctx, msg); err != nil {
			return err
		}
	}
	p.Messages = append(p.Messages, msg)
	return nil
}

func (p *capturePublisher) completions() []bus.StageComplete {
	var out []bus.StageComplete
	for _, msg := range p.Messages {
		if sc, ok := msg.(bus.StageComplete); ok {
			out = append(out, sc)
		}
	}
	return out
}

// stubRecognizer is a func-field fake of the text-recognition capability.
type stubRecognizer struct {
	RecognizeFunc func(ctx context.Context, content []byte) (string, error)
	Calls         int
}

func (r *stubRecognizer) Recognize(ctx context.Context, content []byte) (string, error) {
	r.Calls++
	if r.RecognizeFunc != nil {
		return r.RecognizeFunc(ctx, content)
	}
	return "", nil
}

// stubExtractor is a func-field fake of the structured-extraction capability.
type stubExtractor struct {
	ExtractFunc func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error)
	Calls       int
	LastMime    string
}

func (e *stubExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
	e.Calls++
	e.LastMime = mimeType
	if e.ExtractFunc != nil {
		return e.ExtractFunc(ctx, content, mimeType)
	}
	return &models.StructuredDocument{}, nil
}

// hookStore wraps an ObjectStore and lets tests force individual operations
// to fail.
type hookStore struct {
	storage.ObjectStore
	CopyErr   error
	PutErr    error
	DeleteErr error
}

func (s *hookStore) Copy(ctx context.Context, srcArea, srcPath, dstArea, dstPath string) error {
	if s.CopyErr != nil {
		return s.CopyErr
	}
	return s.ObjectStore.Copy(ctx, srcArea, srcPath, dstArea, dstPath)
}

func (s *hookStore) Put(ctx context.Context, area, path string, data []byte, contentType string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	return s.ObjectStore.Put(ctx, area, path, data, contentType)
}

func (s *hookStore) Delete(ctx context.Context, area, path string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.ObjectStore.Delete(ctx, area, path)
}

var errBoom = errors.New("boom")
