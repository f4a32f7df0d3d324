package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/exocat/internal/source"
	starctx "github.com/leapstack-labs/exocat/internal/starlark"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
	"github.com/starfederation/datastar-go/datastar"
)

const defaultUploadName = "upload.csv"

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Dataset     string           `json:"dataset"`
	State       string           `json:"state"`
	Where       string           `json:"where,omitempty"`
	WhereErrors int64            `json:"where_errors,omitempty"`
	Total       int              `json:"total"`
	Offset      int              `json:"offset"`
	Limit       int              `json:"limit"`
	Records     []catalog.Record `json:"records"`
}

// SortResponse is the body of POST /api/sort/{key}.
type SortResponse struct {
	Key string `json:"key"`
	Dir string `json:"dir"`
}

// DatasetSignals is patched into SSE clients on every replacement.
type DatasetSignals struct {
	Version uint64          `json:"version"`
	Dataset catalog.Summary `json:"dataset"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errNoDataset = errors.New("no dataset loaded")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDataset returns the active dataset's summary.
func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	ds := s.catalog.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, errNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, ds.Summary())
}

// handleUpload replaces the dataset with the request payload. Multipart
// requests carry it in the "file" part; anything else is the raw body, named
// by the optional "name" query parameter so compressed uploads decode.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	name := r.URL.Query().Get("name")
	var body io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defer func() { _ = file.Close() }()
		body = file
		if name == "" {
			name = header.Filename
		}
	}
	if name == "" {
		name = defaultUploadName
	}
	name = path.Base(name)

	rows, err := source.Decode(r.Context(), name, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ds := catalog.FromRows(rows, "upload:"+name)
	s.replace(r.Context(), ds)
	writeJSON(w, http.StatusOK, ds.Summary())
}

// handleSample replaces the dataset with a named sample.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	ds, err := s.resolver.Load(r.Context(), name)
	if err != nil {
		var unknown *catalog.UnknownSampleError
		switch {
		case errors.As(err, &unknown), errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	s.replace(r.Context(), ds)
	writeJSON(w, http.StatusOK, ds.Summary())
}

// handleRecords computes a view over one snapshot of the active dataset.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ds := s.catalog.Current()
	if ds == nil {
		writeError(w, http.StatusNotFound, errNoDataset)
		return
	}

	q, err := ParseRecordsQuery(r.URL.Query(), s.sessionSort(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		extra  []query.Predicate
		filter *starctx.Filter
	)
	if q.Where != "" {
		filter, err = starctx.Compile(q.Where, s.logger)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		extra = append(extra, filter.Predicate())
	}

	view := query.ApplyWith(ds.Records, q.State, extra...)
	resp := RecordsResponse{
		Dataset: ds.ID,
		State:   q.State.Describe(),
		Where:   q.Where,
		Total:   len(view),
		Offset:  q.Offset,
		Limit:   q.Limit,
		Records: query.Page(view, q.Offset, q.Limit),
	}
	if filter != nil {
		resp.WhereErrors = filter.Errors()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSort toggles the session sort on key.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	field, err := catalog.ParseField(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	next := s.sessionSort(r).Toggle(field)
	if err := s.saveSessionSort(w, r, next); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, SortResponse{Key: string(next.Key), Dir: next.Dir.String()})
}

// handleEvents streams the dataset summary as signal patches: once on
// connect, then after every replacement.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	notify := s.catalog.Notifier()
	updates := notify.Subscribe()
	defer notify.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)

	send := func() {
		ds := s.catalog.Current()
		if ds == nil {
			return
		}
		signals := DatasetSignals{Version: notify.Version(), Dataset: ds.Summary()}
		if err := sse.MarshalAndPatchSignals(signals); err != nil {
			s.logger.Debug("failed to send dataset signals", "error", err)
		}
	}
	send()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			send()
		}
	}
}
