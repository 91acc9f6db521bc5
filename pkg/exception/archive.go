package exception

import "errors"

var (
	ErrArchiveDisabled = errors.New("archive: no database configured")
)
