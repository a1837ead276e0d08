package router

import "errors"

var (
	ErrNoPoolFound           = errors.New("no pool found for pair")
	ErrNoRoute               = errors.New("no route between tokens")
	ErrInvalidPool           = errors.New("invalid pool")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrConvergenceFailure    = errors.New("stable invariant did not converge")
)
