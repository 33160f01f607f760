package search

import "errors"

// QueryError marks a request that was rejected before any retrieval work:
// blank queries, unknown search types, bad content types. The fallback client
// never retries these.
type QueryError struct {
	Msg string
}

func (e *QueryError) Error() string {
	return e.Msg
}

// IsQueryError reports whether err is a request validation failure.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
