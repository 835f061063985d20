package models

import "time"

// StructuredDocument is the engine-neutral form of a structured-extraction
// result. Capability adapters translate their native responses into this
// shape; the extraction stage never sees engine protos.
type StructuredDocument struct {
	Text       string
	PageCount  int
	Entities   []Entity
	FormFields []FormField
	Tables     []TableData
}

// Entity is a single labeled mention found by the extraction engine.
type Entity struct {
	Type       string
	Text       string
	Confidence float64
	Page       int
}

// FormField is a detected key/value pair on a page.
type FormField struct {
	Name       string
	Value      string
	Confidence float64
	Page       int
}

// TableData is a detected table, header and body rows flattened in order.
type TableData struct {
	Page int
	Rows [][]string
}

// EntityMention is one occurrence of an entity label in the extraction result.
type EntityMention struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
}

// FieldValue is a recognized field with the engine's confidence in it.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page,omitempty"`
}

// Table is a table in the extraction result. Rows carry header rows first,
// then body rows.
type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"data"`
}

// ExtractionResult is the JSON artifact written by the extraction stage.
// It is created once per document and only ever superseded by a full
// reprocessing run overwriting the same path.
type ExtractionResult struct {
	DocumentType  DocumentType               `json:"document_type"`
	FullText      string                     `json:"full_text"`
	PageCount     int                        `json:"page_count"`
	Entities      map[string][]EntityMention `json:"entities"`
	KeyValuePairs map[string]FieldValue      `json:"key_value_pairs"`
	Tables        []Table                    `json:"tables"`
	TypeSpecific  map[string]FieldValue      `json:"type_specific"`
}

// Manifest marks the completion of one archive operation. It is the last
// object written under an archive partition; its presence means every copy
// under that partition finished.
type Manifest struct {
	OriginalDocumentID        string       `json:"original_document_id"`
	ArchivedAt                time.Time    `json:"archived_at"`
	DocumentType              DocumentType `json:"document_type"`
	ArchivePath               string       `json:"archive_path"`
	RecognizedTextArchivePath string       `json:"recognized_text_archive_path,omitempty"`
}
