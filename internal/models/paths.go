package models

import (
	"fmt"
	"strings"
)

// Artifact namespaces inside the results bucket. Each stage owns exactly one.
const (
	OCRResultsPrefix    = "ocr_results/"
	ExtractedInfoPrefix = "extracted_info/"
	ArchiveManifestName = "metadata.json"
	ArchiveTimeFormat   = "20060102_150405"
)

// sanitizeID flattens dots so derived artifact names keep a single extension.
func sanitizeID(documentID string) string {
	return strings.ReplaceAll(documentID, ".", "_")
}

// OCRResultPath is the canonical path of the recognized-text artifact for a
// document. Its existence is the durable signal that recognition finished.
func OCRResultPath(documentID string) string {
	return fmt.Sprintf("%s%s_ocr.txt", OCRResultsPrefix, sanitizeID(documentID))
}

// ExtractionResultPath is the canonical path of the extraction-result
// artifact for a document.
func ExtractionResultPath(documentID string) string {
	return fmt.Sprintf("%s%s_info.json", ExtractedInfoPrefix, sanitizeID(documentID))
}

// ArchivePartition is the type/time-partitioned directory one archive run
// writes into. Every run derives a fresh timestamp, so replays accumulate
// history instead of overwriting it.
func ArchivePartition(docType DocumentType, timestamp, documentID string) string {
	return fmt.Sprintf("%s/%s/%s", docType, timestamp, documentID)
}

// ArchivedTextPath is the location of the recognized-text copy inside an
// archive partition.
func ArchivedTextPath(docType DocumentType, timestamp, documentID string) string {
	return fmt.Sprintf("%s/%s/%s_ocr.txt", docType, timestamp, sanitizeID(documentID))
}

// ArchiveManifestPath is the location of the manifest inside an archive
// partition.
func ArchiveManifestPath(docType DocumentType, timestamp string) string {
	return fmt.Sprintf("%s/%s/%s", docType, timestamp, ArchiveManifestName)
}
