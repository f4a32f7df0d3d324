package server

import (
	"net/http"

	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
)

const (
	sortKeyValue = "sort_key"
	sortDirValue = "sort_dir"
)

// sessionSort reads the sort stored in the request's session. Missing or
// unreadable sessions yield the default sort.
func (s *Server) sessionSort(r *http.Request) query.Sort {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return query.DefaultSort
	}
	key, _ := session.Values[sortKeyValue].(string)
	dir, _ := session.Values[sortDirValue].(int)
	field, err := catalog.ParseField(key)
	if err != nil {
		return query.DefaultSort
	}
	if query.Direction(dir) != query.Desc {
		return query.Sort{Key: field, Dir: query.Asc}
	}
	return query.Sort{Key: field, Dir: query.Desc}
}

func (s *Server) saveSessionSort(w http.ResponseWriter, r *http.Request, o query.Sort) error {
	// A stale cookie from a rotated secret decodes with an error but still
	// yields a usable fresh session.
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values[sortKeyValue] = string(o.Key)
	session.Values[sortDirValue] = int(o.Dir)
	return session.Save(r, w)
}
