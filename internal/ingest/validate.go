package ingest

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/storeadmin/internal/domain"
)

const DefaultCurrency = "CRC"

type ClientRow struct {
	Index  int
	Client domain.Client
}

type ProductRow struct {
	Index   int
	Product domain.Product
}

type OrderRow struct {
	Index       int
	ClientEmail string
	Order       domain.Order
}

type OrderLineRow struct {
	Index      int
	OrderIndex int
	SKU        string
	Line       domain.OrderLine
}

// Batch es el contenido validado de un libro, listo para el Loader.
type Batch struct {
	Clients  []ClientRow
	Products []ProductRow
	Orders   []OrderRow
	Lines    []OrderLineRow
}

type clientInput struct {
	Name         string     `col:"nombre" validate:"required,max=120"`
	Email        string     `col:"correo" validate:"omitempty,email,max=140"`
	Gender       string     `col:"genero" validate:"oneof=M F X"`
	Country      string     `col:"pais" validate:"required,max=60"`
	RegisteredAt *time.Time `col:"fechaRegistro"`
}

type productInput struct {
	SKU      string `col:"sku" validate:"required,max=64"`
	Name     string `col:"nombre" validate:"required,max=180"`
	Category string `col:"categoria" validate:"required,max=100"`
}

type orderInput struct {
	ClientEmail string           `col:"correo" validate:"required,email"`
	Date        *time.Time       `col:"fecha"`
	Channel     string           `col:"canal" validate:"required,max=20"`
	Currency    string           `col:"moneda" validate:"len=3,alpha,uppercase"`
	Total       *decimal.Decimal `col:"total" validate:"required,gt=0"`
}

type lineInput struct {
	OrderIndex *int             `col:"OrdenIndex" validate:"required,gt=0"`
	SKU        string           `col:"sku" validate:"required,max=64"`
	Quantity   *int             `col:"cantidad" validate:"required,gt=0"`
	UnitPrice  *decimal.Decimal `col:"precioUnit" validate:"required,gt=0"`
	Discount   *decimal.Decimal `col:"descuento" validate:"omitempty,gte=0,lte=100"`
}

type Validator struct {
	v        *validator.Validate
	now      func() time.Time
	currency string
}

type ValidatorOption func(*Validator)

func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

func WithDefaultCurrency(code string) ValidatorOption {
	return func(v *Validator) {
		if c := strings.ToUpper(strings.TrimSpace(code)); c != "" {
			v.currency = c
		}
	}
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("col")
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	val := &Validator{v: v, now: time.Now, currency: DefaultCurrency}
	for _, o := range opts {
		o(val)
	}
	return val
}

// Validate recorre las hojas en orden de carga y devuelve el primer error
// encontrado. No hay resultados parciales.
func (val *Validator) Validate(wb *Workbook) (*Batch, error) {
	now := val.now()
	b := &Batch{}

	for _, raw := range wb.Rows(EntityClient) {
		c, err := val.client(raw)
		if err != nil {
			return nil, err
		}
		b.Clients = append(b.Clients, ClientRow{Index: raw.Index, Client: c})
	}
	for _, raw := range wb.Rows(EntityProduct) {
		p, err := val.product(raw)
		if err != nil {
			return nil, err
		}
		b.Products = append(b.Products, ProductRow{Index: raw.Index, Product: p})
	}
	for _, raw := range wb.Rows(EntityOrder) {
		o, err := val.order(raw, now)
		if err != nil {
			return nil, err
		}
		b.Orders = append(b.Orders, o)
	}
	for _, raw := range wb.Rows(EntityOrderLine) {
		l, err := val.line(raw)
		if err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, l)
	}
	return b, nil
}

// client deja RegisteredAt en cero si la fila no trae fecha: el store la
// completa solo al crear, para no pisar la fecha de un cliente existente.
func (val *Validator) client(raw RawRow) (domain.Client, error) {
	in := clientInput{
		Name:    text(raw, FieldName),
		Email:   domain.NormalizeEmail(text(raw, FieldEmail)),
		Country: text(raw, FieldCountry),
	}
	g, ok := domain.ParseGender(text(raw, FieldGender))
	if ok {
		in.Gender = string(g)
	} else {
		in.Gender = text(raw, FieldGender)
	}
	var err error
	if in.RegisteredAt, err = date(raw, FieldRegisteredAt); err != nil {
		return domain.Client{}, err
	}
	if err := val.check(raw, &in); err != nil {
		return domain.Client{}, err
	}

	c := domain.Client{
		ID:           uuid.New(),
		Name:         in.Name,
		Gender:       domain.Gender(in.Gender),
		Country:      in.Country,
	}
	if in.Email != "" {
		e := in.Email
		c.Email = &e
	}
	if in.RegisteredAt != nil {
		c.RegisteredAt = *in.RegisteredAt
	}
	return c, nil
}

func (val *Validator) product(raw RawRow) (domain.Product, error) {
	in := productInput{
		SKU:      text(raw, FieldSKU),
		Name:     text(raw, FieldName),
		Category: text(raw, FieldCategory),
	}
	if err := val.check(raw, &in); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{ID: uuid.New(), SKU: in.SKU, Name: in.Name, Category: in.Category}, nil
}

func (val *Validator) order(raw RawRow, now time.Time) (OrderRow, error) {
	in := orderInput{
		ClientEmail: domain.NormalizeEmail(text(raw, FieldEmail)),
		Channel:     text(raw, FieldChannel),
		Currency:    strings.ToUpper(text(raw, FieldCurrency)),
	}
	if in.Currency == "" {
		in.Currency = val.currency
	}
	var err error
	if in.Date, err = date(raw, FieldDate); err != nil {
		return OrderRow{}, err
	}
	if in.Total, err = money(raw, FieldTotal); err != nil {
		return OrderRow{}, err
	}
	if err := val.check(raw, &in); err != nil {
		return OrderRow{}, err
	}

	o := domain.Order{
		ID:       uuid.New(),
		Date:     now,
		Channel:  in.Channel,
		Currency: in.Currency,
		Total:    *in.Total,
	}
	if in.Date != nil {
		o.Date = *in.Date
	}
	return OrderRow{Index: raw.Index, ClientEmail: in.ClientEmail, Order: o}, nil
}

func (val *Validator) line(raw RawRow) (OrderLineRow, error) {
	in := lineInput{SKU: text(raw, FieldSKU)}
	var err error
	if in.OrderIndex, err = integer(raw, FieldOrderIndex); err != nil {
		return OrderLineRow{}, err
	}
	if in.Quantity, err = integer(raw, FieldQuantity); err != nil {
		return OrderLineRow{}, err
	}
	if in.UnitPrice, err = money(raw, FieldUnitPrice); err != nil {
		return OrderLineRow{}, err
	}
	if in.Discount, err = money(raw, FieldDiscount); err != nil {
		return OrderLineRow{}, err
	}
	if err := val.check(raw, &in); err != nil {
		return OrderLineRow{}, err
	}

	return OrderLineRow{
		Index:      raw.Index,
		OrderIndex: *in.OrderIndex,
		SKU:        in.SKU,
		Line: domain.OrderLine{
			ID:        uuid.New(),
			Quantity:  *in.Quantity,
			UnitPrice: *in.UnitPrice,
			Discount:  in.Discount,
		},
	}, nil
}

func (val *Validator) check(raw RawRow, in any) error {
	err := val.v.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		c := fe.Tag()
		if fe.Param() != "" {
			c += "=" + fe.Param()
		}
		return &Error{Kind: KindValidation, Sheet: string(raw.Entity), Row: raw.Index, Field: fe.Field(), Constraint: c}
	}
	return &Error{Kind: KindValidation, Sheet: string(raw.Entity), Row: raw.Index, Msg: err.Error(), Err: err}
}

func typeError(raw RawRow, field, constraint string, v any) *Error {
	return &Error{
		Kind:       KindValidation,
		Sheet:      string(raw.Entity),
		Row:        raw.Index,
		Field:      field,
		Constraint: constraint,
		Msg:        fmt.Sprintf("valor %v", v),
	}
}

func text(raw RawRow, field string) string {
	switch v := raw.Fields[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return ""
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

func date(raw RawRow, field string) (*time.Time, error) {
	switch v := raw.Fields[field].(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case float64:
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return nil, typeError(raw, field, "date", v)
		}
		return &t, nil
	case string:
		s := strings.TrimSpace(v)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return &t, nil
			}
		}
	}
	return nil, typeError(raw, field, "date", raw.Fields[field])
}

func integer(raw RawRow, field string) (*int, error) {
	switch v := raw.Fields[field].(type) {
	case nil:
		return nil, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
			n := int(v)
			return &n, nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &n, nil
		}
	}
	return nil, typeError(raw, field, "int", raw.Fields[field])
}

// money acepta números o texto con separadores de miles ("1,234.50",
// "1.234,50", "$1,234") y devuelve el valor decimal canónico. Los montos se
// guardan con dos decimales: más precisión es un error, no se redondea.
func money(raw RawRow, field string) (*decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := raw.Fields[field].(type) {
	case nil:
		return nil, nil
	case float64:
		d = decimal.NewFromFloat(v)
	case string:
		var ok bool
		if d, ok = parseAmount(v); !ok {
			return nil, typeError(raw, field, "numeric", v)
		}
	default:
		return nil, typeError(raw, field, "numeric", v)
	}
	if !d.Equal(d.Round(2)) {
		return nil, typeError(raw, field, "decimals=2", raw.Fields[field])
	}
	return &d, nil
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$₡€ ")
	s = strings.TrimRight(s, "% ")
	s = strings.NewReplacer(" ", "", "_", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma > dot:
		// 1.234,50
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot < 0 && strings.Count(s, ",") == 1 && len(s)-comma-1 != 3:
		// 12,5
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
