package service

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to order")
	ErrSessionUnavailable = errors.New("session store unavailable")
)
