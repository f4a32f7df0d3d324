package server

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/exocat/internal/live"
	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/internal/testutil"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = `mission,id,name,disposition,period_days,radius_re,snr
Kepler,1,Kepler-10 b,CONFIRMED,0.837,1.42,25
Kepler,2,Kepler-XYZ c,CANDIDATE,12.5,2.3,12
TESS,3,TOI-700 d,CONFIRMED,37.4,1.14,
TESS,4,TOI-1000 b,PC,,,8`

func setupTestServer(t *testing.T, initial *catalog.Dataset) *Server {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	return New(Config{
		Catalog:       live.New(initial, nil, logger),
		Resolver:      source.NewResolver(t.TempDir(), logger),
		SessionSecret: "test-secret-key-32-bytes-long!!",
		Logger:        logger,
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ids(records []catalog.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestHealthz(t *testing.T) {
	s := setupTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDataset(t *testing.T) {
	s := setupTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no dataset loaded")

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/dataset/sample/demo:kepler", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[catalog.Summary](t, rec)
	assert.Equal(t, "demo:kepler", sum.Source)
	assert.Equal(t, catalog.SchemaUnified, sum.Schema)
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 1, sum.Confirmed)
}

func TestSample_Errors(t *testing.T) {
	s := setupTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"unknown sample", "demo:k2", "unknown sample"},
		{"public export not downloaded", "public:kepler", "kepler_koi.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/dataset/sample/"+tt.ref, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	assert.Nil(t, s.Catalog().Current())
}

func TestUpload(t *testing.T) {
	gz := func(text string) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(text))
		_ = zw.Close()
		return buf.Bytes()
	}
	multipartBody := func(filename, text string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write([]byte(text))
		_ = mw.Close()
		return &buf, mw.FormDataContentType()
	}

	tests := []struct {
		name       string
		request    func() *http.Request
		wantSource string
		wantRows   int
	}{
		{
			name: "raw body",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/dataset", strings.NewReader(fixtureCSV))
			},
			wantSource: "upload:upload.csv",
			wantRows:   4,
		},
		{
			name: "named gzip body",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/dataset?name=koi.csv.gz", bytes.NewReader(gz(catalog.DemoTESSCSV)))
			},
			wantSource: "upload:koi.csv.gz",
			wantRows:   1,
		},
		{
			name: "multipart file",
			request: func() *http.Request {
				body, ctype := multipartBody("../../etc/cumulative.csv", catalog.DemoKeplerCSV)
				req := httptest.NewRequest(http.MethodPost, "/api/dataset", body)
				req.Header.Set("Content-Type", ctype)
				return req
			},
			wantSource: "upload:cumulative.csv",
			wantRows:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, nil)
			rec := do(t, s.Handler(), tt.request())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			sum := decode[catalog.Summary](t, rec)
			assert.Equal(t, tt.wantSource, sum.Source)
			assert.Equal(t, tt.wantRows, sum.Rows)
			assert.Equal(t, sum.ID, s.Catalog().Current().ID)
		})
	}
}

func TestUpload_Errors(t *testing.T) {
	t.Run("multipart without file part", func(t *testing.T) {
		s := setupTestServer(t, nil)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("other", "x")
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/dataset", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := do(t, s.Handler(), req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		s := setupTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/dataset?name=a.csv.gz", strings.NewReader("not gzip"))
		rec := do(t, s.Handler(), req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, s.Catalog().Current())
	})

	t.Run("too large", func(t *testing.T) {
		s := setupTestServer(t, nil)
		s.maxUpload = 16
		req := httptest.NewRequest(http.MethodPost, "/api/dataset", strings.NewReader(fixtureCSV))
		rec := do(t, s.Handler(), req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRecords(t *testing.T) {
	s := setupTestServer(t, catalog.Load(fixtureCSV, "fixture"))
	h := s.Handler()

	tests := []struct {
		name       string
		query      string
		wantIDs    []string
		wantTotal  int
		wantErrors int64
	}{
		{"default sort by name", "", []string{"1", "2", "4", "3"}, 4, 0},
		{"search", "?q=TOI", []string{"4", "3"}, 2, 0},
		{"confirmed only", "?confirmed=true", []string{"1", "3"}, 2, 0},
		{"radius bound drops nulls", "?radius_min=1.2", []string{"1", "2"}, 2, 0},
		{"period upper bound", "?period_max=13", []string{"1", "2"}, 2, 0},
		{"period desc nulls last", "?sort=period&dir=desc", []string{"3", "2", "1", "4"}, 4, 0},
		{"snr desc", "?sort=SNR&dir=desc", []string{"1", "2", "4", "3"}, 4, 0},
		{"page", "?offset=1&limit=2", []string{"2", "4"}, 4, 0},
		{"offset past end", "?offset=10", []string{}, 4, 0},
		{"where", "?where=" + url.QueryEscape("snr != None and snr > 10"), []string{"1", "2"}, 2, 0},
		{"where runtime errors excluded", "?where=" + url.QueryEscape("period > 1"), []string{"2", "3"}, 2, 1},
		{"where with bounds", "?confirmed=1&where=" + url.QueryEscape(`mission == "TESS"`), []string{"3"}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/records"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[RecordsResponse](t, rec)
			assert.Equal(t, tt.wantIDs, ids(resp.Records))
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.Equal(t, tt.wantErrors, resp.WhereErrors)
		})
	}
}

func TestRecords_BadRequest(t *testing.T) {
	s := setupTestServer(t, catalog.Load(fixtureCSV, "fixture"))
	h := s.Handler()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"bad radius bound", "?radius_min=abc", `radius min: invalid numeric bound \"abc\"`},
		{"bad period bound", "?period_max=1e", "period max"},
		{"bad confirmed", "?confirmed=maybe", "confirmed"},
		{"unknown sort key", "?sort=mass", "unknown field"},
		{"bad direction", "?sort=name&dir=up", "invalid sort direction"},
		{"negative limit", "?limit=-1", "limit"},
		{"bad offset", "?offset=x", "offset"},
		{"where syntax error", "?where=" + url.QueryEscape("snr >"), "invalid where expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/records"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRecords_NoDataset(t *testing.T) {
	s := setupTestServer(t, nil)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/records", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSortSession(t *testing.T) {
	s := setupTestServer(t, catalog.Load(fixtureCSV, "fixture"))
	h := s.Handler()

	var cookies []*http.Cookie
	toggle := func(key string) SortResponse {
		req := httptest.NewRequest(http.MethodPost, "/api/sort/"+key, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := do(t, h, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		if got := rec.Result().Cookies(); len(got) > 0 {
			cookies = got
		}
		return decode[SortResponse](t, rec)
	}
	records := func(q string) []string {
		req := httptest.NewRequest(http.MethodGet, "/api/records"+q, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := do(t, h, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return ids(decode[RecordsResponse](t, rec).Records)
	}

	assert.Equal(t, SortResponse{Key: "period", Dir: "asc"}, toggle("period"))
	assert.Equal(t, []string{"1", "2", "3", "4"}, records(""))

	assert.Equal(t, SortResponse{Key: "period", Dir: "desc"}, toggle("period"))
	assert.Equal(t, []string{"3", "2", "1", "4"}, records(""))

	// An explicit sort parameter wins over the session.
	assert.Equal(t, []string{"1", "2", "4", "3"}, records("?sort=name"))

	assert.Equal(t, SortResponse{Key: "radius", Dir: "asc"}, toggle("radius"))

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/sort/mass", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_SavesToStore(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	st, err := store.Open(store.MemoryPath, logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	s := New(Config{Store: st, SessionSecret: "test-secret-key-32-bytes-long!!", Logger: logger})
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/api/dataset/sample/demo:tess", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	latest, err := st.LatestDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.Catalog().Current().ID, latest.ID)
	assert.Equal(t, "demo:tess", latest.Source)
}

func TestEvents(t *testing.T) {
	s := setupTestServer(t, catalog.Load(catalog.DemoKeplerCSV, "demo:kepler"))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(resp.Body)
	nextSignals := func() string {
		t.Helper()
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "data: signals ") {
				return strings.TrimPrefix(line, "data: signals ")
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return ""
	}

	var first DatasetSignals
	require.NoError(t, json.Unmarshal([]byte(nextSignals()), &first))
	assert.Equal(t, "demo:kepler", first.Dataset.Source)

	s.Catalog().Replace(catalog.Load(catalog.DemoTESSCSV, "demo:tess"))

	var second DatasetSignals
	require.NoError(t, json.Unmarshal([]byte(nextSignals()), &second))
	assert.Equal(t, "demo:tess", second.Dataset.Source)
	assert.Equal(t, 1, second.Dataset.Confirmed)
	assert.Greater(t, second.Version, first.Version)
}

func TestServeListener(t *testing.T) {
	s := setupTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
