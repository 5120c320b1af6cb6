package prescription

import "errors"

var (
	ErrValidation     = errors.New("prescription validation failed")
	ErrInvalidTipo    = errors.New("invalid prescription tipo")
	ErrInvalidNumber  = errors.New("invalid prescription number")
	ErrAlreadyAnulled = errors.New("prescription already annulled")
)
