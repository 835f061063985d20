package gcp

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// VisionRecognizer implements the text-recognition capability with the
// Cloud Vision API.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer creates a Vision-backed recognizer.
func NewVisionRecognizer(ctx context.Context) (*VisionRecognizer, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return &VisionRecognizer{client: client}, nil
}

// Recognize runs text detection over the document bytes and returns the full
// detected text. A document with no detectable text yields an empty string,
// not an error.
func (r *VisionRecognizer) Recognize(ctx context.Context, content []byte) (string, error) {
	resp, err := r.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: content},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision text detection failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", fmt.Errorf("vision returned no responses")
	}
	annotated := resp.GetResponses()[0]
	if status := annotated.GetError(); status != nil {
		return "", fmt.Errorf("vision text detection failed: %s", status.GetMessage())
	}
	annotations := annotated.GetTextAnnotations()
	if len(annotations) == 0 {
		return "", nil
	}
	// The first annotation aggregates the full detected text.
	return annotations[0].GetDescription(), nil
}

// Close releases the underlying client.
func (r *VisionRecognizer) Close() error {
	return r.client.Close()
}
