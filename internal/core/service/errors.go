package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindProductNotFound       ErrorKind = "ProductNotFound"
	KindInventoryNotFound     ErrorKind = "InventoryNotFound"
	KindInsufficientStock     ErrorKind = "InsufficientStock"
	KindInvalidQuantity       ErrorKind = "InvalidQuantity"
	KindInvalidAmount         ErrorKind = "InvalidAmount"
	KindDependencyUnavailable ErrorKind = "DependencyUnavailable"
	KindConcurrentUpdate      ErrorKind = "ConcurrentUpdate"
	KindStoreFailure          ErrorKind = "StoreFailure"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrProductNotFound       = &Error{Kind: KindProductNotFound}
	ErrInventoryNotFound     = &Error{Kind: KindInventoryNotFound}
	ErrInsufficientStock     = &Error{Kind: KindInsufficientStock}
	ErrInvalidQuantity       = &Error{Kind: KindInvalidQuantity}
	ErrInvalidAmount         = &Error{Kind: KindInvalidAmount}
	ErrDependencyUnavailable = &Error{Kind: KindDependencyUnavailable}
	ErrConcurrentUpdate      = &Error{Kind: KindConcurrentUpdate}
	ErrStoreFailure          = &Error{Kind: KindStoreFailure}
)

// Error is the outcome of a failed inventory operation.
type Error struct {
	Kind      ErrorKind
	ProductID int64
	Detail    string
	Err       error
}

func newError(kind ErrorKind, productID int64, detail string, cause error) *Error {
	return &Error{Kind: kind, ProductID: productID, Detail: detail, Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.ProductID != 0 {
		msg = fmt.Sprintf("%s: product %d", msg, e.ProductID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a workflow error, or KindStoreFailure for anything untyped.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}
