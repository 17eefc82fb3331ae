package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Entity string

const (
	EntityClient    Entity = "Cliente"
	EntityProduct   Entity = "Producto"
	EntityOrder     Entity = "Orden"
	EntityOrderLine Entity = "OrdenDetalle"
)

// Entities en el orden en que se validan y cargan.
var Entities = []Entity{EntityClient, EntityProduct, EntityOrder, EntityOrderLine}

type ColumnKind int

const (
	ColText ColumnKind = iota
	ColNumber
	ColDate
)

// Nombres canónicos de los campos. Son las claves de RawRow.Fields.
const (
	FieldName         = "nombre"
	FieldEmail        = "correo"
	FieldGender       = "genero"
	FieldCountry      = "pais"
	FieldRegisteredAt = "fechaRegistro"
	FieldSKU          = "sku"
	FieldCategory     = "categoria"
	FieldDate         = "fecha"
	FieldChannel      = "canal"
	FieldCurrency     = "moneda"
	FieldTotal        = "total"
	FieldOrderIndex   = "OrdenIndex"
	FieldQuantity     = "cantidad"
	FieldUnitPrice    = "precioUnit"
	FieldDiscount     = "descuento"
)

type Column struct {
	Field   string
	Kind    ColumnKind
	Aliases []string
}

type SheetLayout struct {
	Entity  Entity
	Names   []string
	Columns []Column
}

// Layout es la estrategia de nombres de hojas y columnas. Las variantes
// camelCase, snake_case, español e inglés se resuelven con alias.
type Layout struct {
	Sheets []SheetLayout
}

func DefaultLayout() Layout {
	return Layout{Sheets: []SheetLayout{
		{
			Entity: EntityClient,
			Names:  []string{"Cliente", "Client"},
			Columns: []Column{
				{Field: FieldName, Aliases: []string{"name", "nombreCliente"}},
				{Field: FieldEmail, Aliases: []string{"email", "mail"}},
				{Field: FieldGender, Aliases: []string{"gender", "sexo"}},
				{Field: FieldCountry, Aliases: []string{"country"}},
				{Field: FieldRegisteredAt, Kind: ColDate, Aliases: []string{"fecha_registro", "registered_at", "registrationDate"}},
			},
		},
		{
			Entity: EntityProduct,
			Names:  []string{"Producto", "Product"},
			Columns: []Column{
				{Field: FieldSKU, Aliases: []string{"codigoAlt", "alt_code", "altCode", "codigo"}},
				{Field: FieldName, Aliases: []string{"name", "nombreProducto"}},
				{Field: FieldCategory, Aliases: []string{"category"}},
			},
		},
		{
			Entity: EntityOrder,
			Names:  []string{"Orden", "Order"},
			Columns: []Column{
				{Field: FieldEmail, Aliases: []string{"email", "clienteCorreo", "client_email", "cliente"}},
				{Field: FieldDate, Kind: ColDate, Aliases: []string{"date", "fecha_orden"}},
				{Field: FieldChannel, Aliases: []string{"channel"}},
				{Field: FieldCurrency, Aliases: []string{"currency"}},
				{Field: FieldTotal, Kind: ColNumber, Aliases: []string{"amount", "monto"}},
			},
		},
		{
			Entity: EntityOrderLine,
			Names:  []string{"OrdenDetalle", "OrderLine"},
			Columns: []Column{
				{Field: FieldOrderIndex, Kind: ColNumber, Aliases: []string{"orden_index", "order_index", "orden"}},
				{Field: FieldSKU, Aliases: []string{"codigoAlt", "product_sku", "productSku", "producto"}},
				{Field: FieldQuantity, Kind: ColNumber, Aliases: []string{"quantity", "qty"}},
				{Field: FieldUnitPrice, Kind: ColNumber, Aliases: []string{"precio_unitario", "precioUnitario", "unit_price"}},
				{Field: FieldDiscount, Kind: ColNumber, Aliases: []string{"descuento_pct", "discount", "discountPct"}},
			},
		},
	}}
}

func (l Layout) sheetFor(name string) (SheetLayout, bool) {
	for _, s := range l.Sheets {
		for _, n := range s.Names {
			if n == name {
				return s, true
			}
		}
	}
	return SheetLayout{}, false
}

// columnFor resuelve un encabezado contra el nombre canónico y los alias.
func (s SheetLayout) columnFor(header string) (Column, bool) {
	h := headerKey(header)
	if h == "" {
		return Column{}, false
	}
	for _, c := range s.Columns {
		if headerKey(c.Field) == h {
			return c, true
		}
		for _, a := range c.Aliases {
			if headerKey(a) == h {
				return c, true
			}
		}
	}
	return Column{}, false
}

func headerKey(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.TrimSpace(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r == ' ' || r == '_' || r == '-' || r == '.':
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
