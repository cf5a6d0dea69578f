package mariadb

import "github.com/msto63/englishquery/pkg/core/apperr"

// Sentinel errors. Compare with errors.Is; matching is by code.
var (
	ErrEmptyStatement   = apperr.New(apperr.CodeEmptyStatement, "empty SQL statement")
	ErrNotConnected     = apperr.New(apperr.CodeNotConnected, "not connected to database")
	ErrConnectionFailed = apperr.New(apperr.CodeConnectionFailed, "could not connect to database")
	ErrQueryExecution   = apperr.New(apperr.CodeQueryExecution, "query failed")
	ErrStreamConsumed   = apperr.New(apperr.CodeStreamConsumed, "stream already consumed")
)
