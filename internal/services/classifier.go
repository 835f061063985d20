package services

import (
	"strings"

	"github.com/acastillo/docpipeline/internal/models"
)

// typeKeywords pairs each document type with the substrings that identify it.
// Order matters: the first type with a match wins.
var typeKeywords = []struct {
	docType  models.DocumentType
	keywords []string
}{
	{models.TypeInvoice, []string{"factura", "invoice", "bill", "recibo"}},
	{models.TypeContract, []string{"contrato", "contract", "acuerdo"}},
	{models.TypeIdentification, []string{"identificación", "id", "passport", "dni"}},
	{models.TypeReport, []string{"reporte", "report", "informe"}},
}

// ClassifyText maps recognized text to a document type using keyword
// heuristics. It is pure and total: every input maps to exactly one type,
// falling back to general when nothing matches.
func ClassifyText(text string) models.DocumentType {
	lower := strings.ToLower(text)
	for _, set := range typeKeywords {
		for _, keyword := range set.keywords {
			if strings.Contains(lower, keyword) {
				return set.docType
			}
		}
	}
	return models.TypeGeneral
}
