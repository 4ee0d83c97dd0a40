package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Header is the persisted canonical header of a captured comprobante.
type Header struct {
	DocumentID        string          `json:"documentId"`
	Fecha             string          `json:"fecha"`
	NetoGravado       decimal.Decimal `json:"netoGravado"`
	Exento            decimal.Decimal `json:"exento"`
	Impuestos         decimal.Decimal `json:"impuestos"`
	ImporteTotal      decimal.Decimal `json:"importeTotal"`
	CUIT              string          `json:"cuit,omitempty"`
	NumeroComprobante string          `json:"numeroComprobante,omitempty"`
	CAE               string          `json:"cae,omitempty"`
	Proveedor         string          `json:"proveedor,omitempty"`
	ProveedorID       string          `json:"proveedorId,omitempty"`
	Moneda            string          `json:"moneda,omitempty"`
	Observaciones     string          `json:"observaciones,omitempty"`
}

// HeaderUpdate is the body of a header save. Blank optional fields travel as null.
type HeaderUpdate struct {
	Fecha             Optional[string] `json:"fecha"`
	NetoGravado       decimal.Decimal  `json:"netoGravado"`
	Exento            decimal.Decimal  `json:"exento"`
	Impuestos         decimal.Decimal  `json:"impuestos"`
	ImporteTotal      decimal.Decimal  `json:"importeTotal"`
	CUIT              Optional[string] `json:"cuit"`
	NumeroComprobante Optional[string] `json:"numeroComprobante"`
	CAE               Optional[string] `json:"cae"`
	Proveedor         Optional[string] `json:"proveedor"`
	ProveedorID       Optional[string] `json:"proveedorId"`
	Moneda            Optional[string] `json:"moneda"`
	Observaciones     Optional[string] `json:"observaciones"`
}

// Apply merges u over h and returns the result.
func (h Header) Apply(u HeaderUpdate) Header {
	h.Fecha = u.Fecha.OrElse("")
	h.NetoGravado = u.NetoGravado
	h.Exento = u.Exento
	h.Impuestos = u.Impuestos
	h.ImporteTotal = u.ImporteTotal
	h.CUIT = u.CUIT.OrElse("")
	h.NumeroComprobante = u.NumeroComprobante.OrElse("")
	h.CAE = u.CAE.OrElse("")
	h.Proveedor = u.Proveedor.OrElse("")
	h.ProveedorID = u.ProveedorID.OrElse("")
	h.Moneda = u.Moneda.OrElse("")
	h.Observaciones = u.Observaciones.OrElse("")
	return h
}

// LineItem is one invoice line of a captured document.
type LineItem struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"documentId"`
	Descripcion    string          `json:"descripcion"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario"`
	Importe        decimal.Decimal `json:"importe"`
	CodigoProducto string          `json:"codigoProducto,omitempty"`
}

// TaxEntry is one tax line of a captured document.
type TaxEntry struct {
	ID          string          `json:"id"`
	DocumentID  string          `json:"documentId"`
	Codigo      string          `json:"codigo"`
	Descripcion string          `json:"descripcion"`
	Base        decimal.Decimal `json:"base"`
	Alicuota    decimal.Decimal `json:"alicuota"`
	Importe     decimal.Decimal `json:"importe"`
}

// SourceItem is the rendicion item whose total an apertura decomposes.
type SourceItem struct {
	ID             string          `json:"id"`
	Total          decimal.Decimal `json:"total"`
	TipoProducto   string          `json:"tipoProducto,omitempty"`
	CodigoProducto string          `json:"codigoProducto,omitempty"`
	NetoGravado    decimal.Decimal `json:"netoGravado"`
	Exento         decimal.Decimal `json:"exento"`
	Impuestos      decimal.Decimal `json:"impuestos"`
	Observacion    string          `json:"observacion,omitempty"`
}

// AperturaRow is one row of a decomposition of a source item total.
type AperturaRow struct {
	ID              string          `json:"id"`
	TipoProducto    string          `json:"tipoProducto"`
	CodigoProducto  string          `json:"codigoProducto"`
	NetoGravado     decimal.Decimal `json:"netoGravado"`
	Exento          decimal.Decimal `json:"exento"`
	Impuestos       decimal.Decimal `json:"impuestos"`
	CodigoDimension string          `json:"codigoDimension"`
	Subcuenta       string          `json:"subcuenta"`
	CuentaContable  string          `json:"cuentaContable"`
	Patente         string          `json:"patente"`
	Odometro        decimal.Decimal `json:"odometro"`
	TipoOrdenCompra string          `json:"tipoOrdenCompra"`
	OrdenCompra     string          `json:"ordenCompra"`
	Observacion     string          `json:"observacion"`
}

// Total is netoGravado + exento + impuestos.
func (r AperturaRow) Total() decimal.Decimal {
	return r.NetoGravado.Add(r.Exento).Add(r.Impuestos)
}

// Equal compares every editable field. Decimals compare by value.
func (r AperturaRow) Equal(o AperturaRow) bool {
	return r.TipoProducto == o.TipoProducto &&
		r.CodigoProducto == o.CodigoProducto &&
		r.NetoGravado.Equal(o.NetoGravado) &&
		r.Exento.Equal(o.Exento) &&
		r.Impuestos.Equal(o.Impuestos) &&
		r.CodigoDimension == o.CodigoDimension &&
		r.Subcuenta == o.Subcuenta &&
		r.CuentaContable == o.CuentaContable &&
		r.Patente == o.Patente &&
		r.Odometro.Equal(o.Odometro) &&
		r.TipoOrdenCompra == o.TipoOrdenCompra &&
		r.OrdenCompra == o.OrdenCompra &&
		r.Observacion == o.Observacion
}

// CodeType names a family of resolvable codes.
type CodeType string

const (
	CodeProveedor       CodeType = "proveedor"
	CodeDimension       CodeType = "dimension"
	CodeSubcuenta       CodeType = "subcuenta"
	CodeCuentaContable  CodeType = "cuentaContable"
	CodeTipoOrdenCompra CodeType = "tipoOrdenCompra"
	CodeTipoProducto    CodeType = "tipoProducto"
)

// CodeTypes lists every resolvable code type.
var CodeTypes = []CodeType{
	CodeProveedor,
	CodeDimension,
	CodeSubcuenta,
	CodeCuentaContable,
	CodeTipoOrdenCompra,
	CodeTipoProducto,
}

// ParseCodeType validates s against CodeTypes, ignoring case.
func ParseCodeType(s string) (CodeType, error) {
	for _, t := range CodeTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown code type %q", s)
}

// CodeEntry is one code and its display name.
type CodeEntry struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}
