package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

var austin = model.Coordinate{Lat: 30.2672, Lng: -97.7431}

// pagedServer serves pages[i] for the i-th request and counts requests.
type pagedServer struct {
	t        *testing.T
	pages    []nearbyResponse
	requests atomic.Int32

	mu     sync.Mutex
	tokens []string
}

func (s *pagedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(s.requests.Add(1)) - 1
	s.mu.Lock()
	s.tokens = append(s.tokens, r.URL.Query().Get("pagetoken"))
	s.mu.Unlock()
	if n >= len(s.pages) {
		s.t.Errorf("unexpected request %d", n)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(s.pages[n])
}

func page(prefix string, n int, next string) nearbyResponse {
	resp := nearbyResponse{Status: "OK", NextPageToken: next}
	for i := 0; i < n; i++ {
		resp.Results = append(resp.Results, placeResult{
			PlaceID:  fmt.Sprintf("%s-%d", prefix, i),
			Name:     fmt.Sprintf("Biz %s %d", prefix, i),
			Vicinity: "Main St",
		})
	}
	return resp
}

func newTestClient(t *testing.T, baseURL string, delay time.Duration) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL, PageDelay: delay}, zaptest.NewLogger(t))
}

func TestSearchSinglePageWithoutToken(t *testing.T) {
	ps := &pagedServer{t: t, pages: []nearbyResponse{page("a", 5, "")}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	hits, err := newTestClient(t, srv.URL, time.Millisecond).Search(context.Background(), "plumber", austin, 60)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
	assert.EqualValues(t, 1, ps.requests.Load())
	assert.Equal(t, "a-0", hits[0].EntityID)
	assert.Equal(t, "Main St", hits[0].Address)
}

func TestSearchFollowsTokensAndDelays(t *testing.T) {
	ps := &pagedServer{t: t, pages: []nearbyResponse{
		page("a", 20, "tok1"),
		page("b", 20, "tok2"),
		page("c", 20, ""),
	}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	delay := 20 * time.Millisecond
	start := time.Now()
	hits, err := newTestClient(t, srv.URL, delay).Search(context.Background(), "plumber", austin, 60)
	require.NoError(t, err)

	assert.Len(t, hits, 60)
	assert.EqualValues(t, 3, ps.requests.Load())
	ps.mu.Lock()
	assert.Equal(t, []string{"", "tok1", "tok2"}, ps.tokens)
	ps.mu.Unlock()
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestSearchStopsAtMaxResultsAndTruncates(t *testing.T) {
	ps := &pagedServer{t: t, pages: []nearbyResponse{
		page("a", 20, "tok1"),
		page("b", 20, "tok2"),
		page("c", 20, ""),
	}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	hits, err := newTestClient(t, srv.URL, time.Millisecond).Search(context.Background(), "plumber", austin, 30)
	require.NoError(t, err)
	assert.Len(t, hits, 30)
	assert.EqualValues(t, 2, ps.requests.Load(), "third page must not be fetched")
	assert.Equal(t, "b-9", hits[29].EntityID)
}

func TestSearchNeverExceedsMaxResults(t *testing.T) {
	for _, limit := range []int{1, 7, 20, 21, 59} {
		ps := &pagedServer{t: t, pages: []nearbyResponse{
			page("a", 20, "tok1"),
			page("b", 20, "tok2"),
			page("c", 20, ""),
		}}
		srv := httptest.NewServer(ps)

		hits, err := newTestClient(t, srv.URL, 0).Search(context.Background(), "cafe", austin, limit)
		srv.Close()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), limit)
	}
}

func TestSearchSendsQuery(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		got = map[string]string{
			"location": q.Get("location"),
			"radius":   q.Get("radius"),
			"keyword":  q.Get("keyword"),
			"key":      q.Get("key"),
		}
		json.NewEncoder(w).Encode(nearbyResponse{Status: "ZERO_RESULTS"})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/", Radius: 3336}, zaptest.NewLogger(t))
	hits, err := c.Search(context.Background(), "roofing contractor", austin, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, map[string]string{
		"location": "30.2672,-97.7431",
		"radius":   "3336",
		"keyword":  "roofing contractor",
		"key":      "k",
	}, got)
}

func TestSearchErrorStatusFailsCall(t *testing.T) {
	bad := nearbyResponse{Status: "INVALID_REQUEST", ErrorMessage: "token not ready"}
	ps := &pagedServer{t: t, pages: []nearbyResponse{page("a", 20, "tok1"), bad}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	hits, err := newTestClient(t, srv.URL, 0).Search(context.Background(), "plumber", austin, 60)
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	var sse *SearchServiceError
	require.True(t, errors.As(err, &sse))
	assert.Equal(t, "INVALID_REQUEST", sse.Status)
	assert.Equal(t, "token not ready", sse.Message)
}

func TestSearchHTTPErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Search(context.Background(), "plumber", austin, 60)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestSearchMalformedBodyIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Search(context.Background(), "plumber", austin, 60)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestSearchCancelledDuringPageDelay(t *testing.T) {
	ps := &pagedServer{t: t, pages: []nearbyResponse{page("a", 20, "tok1")}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv.URL, time.Minute).Search(ctx, "plumber", austin, 60)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, ps.requests.Load())
}

func detailsServer(t *testing.T, body any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "place-1", r.URL.Query().Get("place_id"))
		assert.Equal(t, detailFields, r.URL.Query().Get("fields"))
		switch b := body.(type) {
		case string:
			w.Write([]byte(b))
		default:
			json.NewEncoder(w).Encode(b)
		}
	}))
}

func TestDetailsMapsFields(t *testing.T) {
	srv := detailsServer(t, `{"status":"OK","result":{
		"name":"Joe's Plumbing","formatted_address":"1 Main St, Austin, TX",
		"website":"http://joes.example","formatted_phone_number":"(512) 555-0100",
		"rating":4.2,"user_ratings_total":12,"business_status":"OPERATIONAL"}}`)
	defer srv.Close()

	rec, err := newTestClient(t, srv.URL, 0).Details(context.Background(), "place-1")
	require.NoError(t, err)

	assert.Equal(t, "place-1", rec.EntityID)
	assert.Equal(t, "Joe's Plumbing", rec.Name)
	assert.Equal(t, "1 Main St, Austin, TX", rec.Address)
	assert.Equal(t, "http://joes.example", rec.Website)
	assert.Equal(t, "(512) 555-0100", rec.Phone)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.2, *rec.Rating)
	require.NotNil(t, rec.ReviewCount)
	assert.Equal(t, 12, *rec.ReviewCount)
	assert.Equal(t, model.StatusOperational, rec.Status)
}

func TestDetailsAbsentFieldsStayAbsent(t *testing.T) {
	srv := detailsServer(t, `{"status":"OK","result":{"name":"Quiet Co"}}`)
	defer srv.Close()

	rec, err := newTestClient(t, srv.URL, 0).Details(context.Background(), "place-1")
	require.NoError(t, err)
	assert.Nil(t, rec.Rating)
	assert.Nil(t, rec.ReviewCount)
	assert.Empty(t, rec.Website)
	assert.Equal(t, model.StatusUnknown, rec.Status)
}

func TestEnrichDegradesToEmptyRecord(t *testing.T) {
	cases := map[string]any{
		"error status": `{"status":"NOT_FOUND"}`,
		"malformed":    `{"status":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := detailsServer(t, body)
			defer srv.Close()

			rec := newTestClient(t, srv.URL, 0).Enrich(context.Background(), "place-1")
			assert.Equal(t, "place-1", rec.EntityID)
			assert.Empty(t, rec.Name)
			assert.Nil(t, rec.ReviewCount)
			assert.Nil(t, rec.Rating)
			assert.Equal(t, model.StatusUnknown, rec.Status)
		})
	}
}

func TestEnrichUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := newTestClient(t, url, 0).Enrich(context.Background(), "place-1")
	assert.Equal(t, model.StatusUnknown, rec.Status)
	assert.Nil(t, rec.ReviewCount)
}
