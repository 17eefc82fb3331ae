package ingest

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindStore Kind = iota
	KindInput
	KindValidation
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindValidation:
		return "validation"
	case KindReference:
		return "reference"
	default:
		return "store"
	}
}

var ErrEmptyWorkbook = &Error{Kind: KindInput, Msg: "el archivo no contiene hojas reconocidas (Cliente, Producto, Orden, OrdenDetalle)"}

// Error describe un fallo de la ingesta con el contexto necesario para
// ubicarlo en el archivo: hoja, fila, campo o clave natural.
type Error struct {
	Kind       Kind
	Sheet      string
	Row        int
	Field      string
	Constraint string
	Entity     string
	Key        string
	Value      string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindReference:
		msg := fmt.Sprintf("%s with %s '%s' not found", e.Entity, e.Key, e.Value)
		if e.Sheet != "" && e.Row > 0 {
			msg += fmt.Sprintf(" (hoja %s, fila %d)", e.Sheet, e.Row)
		}
		return msg
	case KindValidation:
		var b strings.Builder
		fmt.Fprintf(&b, "hoja %s, fila %d: campo %q no cumple %q", e.Sheet, e.Row, e.Field, e.Constraint)
		if e.Msg != "" {
			b.WriteString(": " + e.Msg)
		}
		return b.String()
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Sheet != "" && e.Row > 0 {
		msg += fmt.Sprintf(" (hoja %s, fila %d)", e.Sheet, e.Row)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf clasifica err. Cualquier error que no sea *Error se considera de infraestructura.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindStore
}

func inputError(msg string, err error) *Error {
	return &Error{Kind: KindInput, Msg: msg, Err: err}
}

func storeError(msg string, err error) *Error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}
