// Package searchindex implements §4.9: a small in-memory index mapping
// each request id to the tokens found in its request and response
// messages, searched with glob-style substring matching.
package searchindex

import (
	"sync"

	"github.com/tidwall/match"

	uuid "github.com/satori/go.uuid"
)

// Index holds two token lists per request id: one for the request
// message, one for the response, matching the teacher's existing direct
// dependency on tidwall/match (used there for host/URL glob rules) reused
// here for free-text search.
type Index struct {
	mu       sync.RWMutex
	request  map[uuid.UUID][]string
	response map[uuid.UUID][]string
}

// New returns an empty Index.
func New() *Index {
	return &Index{request: make(map[uuid.UUID][]string), response: make(map[uuid.UUID][]string)}
}

// IndexRequest replaces the request-side token list for id. Calling it
// again for the same id is idempotent: it overwrites rather than appends,
// so re-indexing after a message is amended never duplicates tokens.
func (idx *Index) IndexRequest(id uuid.UUID, tokens []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.request[id] = tokens
}

// IndexResponse replaces the response-side token list for id.
func (idx *Index) IndexResponse(id uuid.UUID, tokens []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.response[id] = tokens
}

// Search returns the ids whose request or response tokens contain pattern
// (a tidwall/match glob: "*", "?", character classes), matched anywhere
// inside a token, so a plain word is a substring search.
func (idx *Index) Search(pattern string) []uuid.UUID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	check := func(id uuid.UUID, tokens []string) {
		if seen[id] {
			return
		}
		for _, tok := range tokens {
			if match.Match(tok, "*"+pattern+"*") {
				seen[id] = true
				out = append(out, id)
				return
			}
		}
	}
	for id, tokens := range idx.request {
		check(id, tokens)
	}
	for id, tokens := range idx.response {
		check(id, tokens)
	}
	return out
}

// Forget drops all indexed tokens for id (e.g. once its request has
// scrolled out of a bounded in-memory session).
func (idx *Index) Forget(id uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.request, id)
	delete(idx.response, id)
}
