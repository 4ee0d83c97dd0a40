package pipeline

import (
	"strings"
	"unicode"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/textclean"
	"github.com/dvloznov/rendiciones/internal/tolerance"
)

// NormalizeFields returns f with dates in YYYY-MM-DD, currency codes in
// upper case, CUITs as NN-NNNNNNNN-N and free text cleaned. Values that
// cannot be normalized are kept as extracted; text that cleans to nothing
// becomes absent.
func NormalizeFields(f domain.ExtractedFields) domain.ExtractedFields {
	if v, ok := f.Fecha.Get(); ok {
		if d, ok := tolerance.ParseDate(v); ok {
			f.Fecha = domain.Some(d.String())
		}
	}
	f.Moneda = mapText(f.Moneda, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
	f.CUIT = mapText(f.CUIT, normalizeCUIT)
	f.Proveedor = mapText(f.Proveedor, textclean.Clean)
	f.Observaciones = mapText(f.Observaciones, textclean.Clean)
	f.NumeroComprobante = mapText(f.NumeroComprobante, strings.TrimSpace)
	f.CAE = mapText(f.CAE, strings.TrimSpace)
	f.ProveedorID = mapText(f.ProveedorID, strings.TrimSpace)
	return f
}

func mapText(o domain.Optional[string], fn func(string) string) domain.Optional[string] {
	v, ok := o.Get()
	if !ok {
		return o
	}
	v = fn(v)
	if v == "" {
		return domain.None[string]()
	}
	return domain.Some(v)
}

// normalizeCUIT formats an 11-digit CUIT with dashes. Other inputs are
// returned trimmed.
func normalizeCUIT(s string) string {
	s = strings.TrimSpace(s)
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		if r == '-' || r == ' ' || r == '.' {
			return -1
		}
		return 'x'
	}, s)
	if len(digits) != 11 || strings.ContainsRune(digits, 'x') {
		return s
	}
	return digits[:2] + "-" + digits[2:10] + "-" + digits[10:]
}
