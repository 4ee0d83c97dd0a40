package apertura

import (
	"fmt"
	"strings"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/shopspring/decimal"
)

// Field names one editable column of the grid.
type Field string

const (
	FieldTipoProducto    Field = "tipoProducto"
	FieldCodigoProducto  Field = "codigoProducto"
	FieldNetoGravado     Field = "netoGravado"
	FieldExento          Field = "exento"
	FieldImpuestos       Field = "impuestos"
	FieldCodigoDimension Field = "codigoDimension"
	FieldSubcuenta       Field = "subcuenta"
	FieldCuentaContable  Field = "cuentaContable"
	FieldPatente         Field = "patente"
	FieldOdometro        Field = "odometro"
	FieldTipoOrdenCompra Field = "tipoOrdenCompra"
	FieldOrdenCompra     Field = "ordenCompra"
	FieldObservacion     Field = "observacion"
)

// FieldOrder is the column order used for keyboard navigation.
var FieldOrder = []Field{
	FieldTipoProducto,
	FieldCodigoProducto,
	FieldNetoGravado,
	FieldExento,
	FieldImpuestos,
	FieldCodigoDimension,
	FieldSubcuenta,
	FieldCuentaContable,
	FieldPatente,
	FieldOdometro,
	FieldTipoOrdenCompra,
	FieldOrdenCompra,
	FieldObservacion,
}

var codeFields = map[Field]domain.CodeType{
	FieldTipoProducto:    domain.CodeTipoProducto,
	FieldCodigoDimension: domain.CodeDimension,
	FieldSubcuenta:       domain.CodeSubcuenta,
	FieldCuentaContable:  domain.CodeCuentaContable,
	FieldTipoOrdenCompra: domain.CodeTipoOrdenCompra,
}

// ParseField accepts a field name case-insensitively, ignoring spaces,
// underscores and dashes.
func ParseField(s string) (Field, error) {
	key := fieldKey(s)
	for _, f := range FieldOrder {
		if fieldKey(string(f)) == key {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown apertura field %q", s)
}

func fieldKey(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Numeric reports whether f holds an amount.
func (f Field) Numeric() bool {
	switch f {
	case FieldNetoGravado, FieldExento, FieldImpuestos, FieldOdometro:
		return true
	}
	return false
}

// CodeType returns the code list f resolves against, if any.
func (f Field) CodeType() (domain.CodeType, bool) {
	t, ok := codeFields[f]
	return t, ok
}

func fieldForCode(t domain.CodeType) (Field, bool) {
	for f, ct := range codeFields {
		if ct == t {
			return f, true
		}
	}
	return "", false
}

// Value renders f of r as text. Amounts use two decimals.
func Value(r domain.AperturaRow, f Field) string {
	switch f {
	case FieldTipoProducto:
		return r.TipoProducto
	case FieldCodigoProducto:
		return r.CodigoProducto
	case FieldNetoGravado:
		return domain.FormatAmount(r.NetoGravado)
	case FieldExento:
		return domain.FormatAmount(r.Exento)
	case FieldImpuestos:
		return domain.FormatAmount(r.Impuestos)
	case FieldCodigoDimension:
		return r.CodigoDimension
	case FieldSubcuenta:
		return r.Subcuenta
	case FieldCuentaContable:
		return r.CuentaContable
	case FieldPatente:
		return r.Patente
	case FieldOdometro:
		return r.Odometro.String()
	case FieldTipoOrdenCompra:
		return r.TipoOrdenCompra
	case FieldOrdenCompra:
		return r.OrdenCompra
	case FieldObservacion:
		return r.Observacion
	}
	return ""
}

// setValue writes value into f of r. Numeric fields coerce unparseable
// input to zero.
func setValue(r *domain.AperturaRow, f Field, value string) error {
	var amount decimal.Decimal
	if f.Numeric() {
		amount = domain.AmountOrZero(value)
	} else {
		value = strings.TrimSpace(value)
	}

	switch f {
	case FieldTipoProducto:
		r.TipoProducto = value
	case FieldCodigoProducto:
		r.CodigoProducto = value
	case FieldNetoGravado:
		r.NetoGravado = amount
	case FieldExento:
		r.Exento = amount
	case FieldImpuestos:
		r.Impuestos = amount
	case FieldCodigoDimension:
		r.CodigoDimension = value
	case FieldSubcuenta:
		r.Subcuenta = value
	case FieldCuentaContable:
		r.CuentaContable = value
	case FieldPatente:
		r.Patente = value
	case FieldOdometro:
		r.Odometro = amount
	case FieldTipoOrdenCompra:
		r.TipoOrdenCompra = value
	case FieldOrdenCompra:
		r.OrdenCompra = value
	case FieldObservacion:
		r.Observacion = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}
