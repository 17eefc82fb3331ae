package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrTxAcquireTimeout = errors.New("timeout esperando transacción")
)
