package models

import "errors"

// Error taxonomy shared by the pricing packages. Callers wrap these with
// fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	ErrConfiguration        = errors.New("lmm: invalid configuration")
	ErrNumericalInstability = errors.New("lmm: numerical instability")
	ErrCurveEvaluation      = errors.New("lmm: curve evaluation outside representable range")
)
