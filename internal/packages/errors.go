package packages

import "errors"

var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrInvalidBuildType = errors.New("invalid build type")
	ErrNoBrokenFields   = errors.New("no valid fields to update")
	ErrInvalidInput     = errors.New("invalid input")
)
