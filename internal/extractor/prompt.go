package extractor

import (
	"strings"

	"github.com/dvloznov/rendiciones/internal/domain"
)

var fieldHints = map[domain.FieldName]string{
	domain.FieldFecha:             `string, issue date as "YYYY-MM-DD"`,
	domain.FieldImporte:           "number, grand total",
	domain.FieldCUIT:              "string, issuer tax id (CUIT), digits and dashes as printed",
	domain.FieldNumeroComprobante: `string, receipt number (e.g. "0001-00012345")`,
	domain.FieldCAE:               "string, electronic authorization code (CAE)",
	domain.FieldProveedor:         "string, issuer business name",
	domain.FieldProveedorID:       "string, issuer id if printed separately from the CUIT",
	domain.FieldNetoGravado:       "number, taxable net amount",
	domain.FieldExento:            "number, exempt amount",
	domain.FieldImpuestos:         "number, sum of all taxes (IVA, perceptions)",
	domain.FieldMoneda:            `string, ISO currency code (e.g. "ARS", "USD")`,
	domain.FieldObservaciones:     "string, short free-text notes, if any",
}

// Prompt builds the extraction instructions listing every field of the
// extracted set.
func Prompt() string {
	var b strings.Builder
	b.WriteString("You are a receipt and invoice reader for expense reports.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read the attached document.\n")
	b.WriteString("- Output ONE JSON object with these keys:\n")
	for _, name := range domain.ExtractedFieldOrder {
		b.WriteString("  - \"" + string(name) + "\": " + fieldHints[name] + "\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Use null for any field that is not printed on the document. Never guess.\n")
	b.WriteString("- Numbers use '.' as the decimal mark and no thousands separators.\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}
