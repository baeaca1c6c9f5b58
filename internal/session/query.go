package session

import (
	"strings"

	"github.com/samber/lo"
	uuid "github.com/satori/go.uuid"
)

// RequestsMatching returns, in creation order, the requests for which pred
// returns true. Built on lo.Filter rather than a hand-rolled loop, matching
// the functional-helper style of samber/lo, a direct dependency of the
// teacher.
func (s *Session) RequestsMatching(pred func(*Request) bool) []*Request {
	return lo.Filter(s.Requests(), func(r *Request, _ int) bool { return pred(r) })
}

// RequestsByMethod returns requests whose method equals method, case
// sensitively (HTTP methods are conventionally uppercase).
func (s *Session) RequestsByMethod(method string) []*Request {
	return s.RequestsMatching(func(r *Request) bool { return r.Method == method })
}

// RequestsWithURIPrefix returns requests whose URI starts with prefix.
func (s *Session) RequestsWithURIPrefix(prefix string) []*Request {
	return s.RequestsMatching(func(r *Request) bool { return strings.HasPrefix(r.URI, prefix) })
}

// ConnectionIDs returns the id of every connection in the session, including
// connections with no requests, derived with lo.KeyBy/lo.Keys rather than a
// manual dedup loop. The order of the returned ids is not defined.
func (s *Session) ConnectionIDs() []uuid.UUID {
	byID := lo.KeyBy(s.Connections(), func(c *Connection) uuid.UUID { return c.ID })
	return lo.Keys(byID)
}

// FailedRequests returns every request whose terminal status is Failed.
func (s *Session) FailedRequests() []*Request {
	return s.RequestsMatching(func(r *Request) bool { return r.Status == StatusFailed })
}
