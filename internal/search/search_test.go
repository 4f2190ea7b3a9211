package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newIndex(t *testing.T, rt roundTripFunc) *Index {
	t.Helper()
	x, err := New(Config{URL: "http://es.test:9200", Index: "items", Transport: rt})
	require.NoError(t, err)
	return x
}

func TestSearch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	x := newIndex(t, func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		return respond(200, `{"hits":{"total":{"value":2},"hits":[
			{"_source":{"id":"1","slug":"red-tee","title":"Red tee","price":"12.5"}},
			{"_source":{"id":"2","slug":"blue-tee","title":"Blue tee","price":"10"}}]}}`), nil
	})

	total, docs, err := x.Search(context.Background(), "tee", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, "/items/_search", gotPath)
	assert.EqualValues(t, 2, total)
	require.Len(t, docs, 2)
	assert.Equal(t, "red-tee", docs[0].Slug)
	assert.True(t, docs[0].Price.Equal(decimal.RequireFromString("12.5")))

	mm := gotBody["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "tee", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.EqualValues(t, 20, gotBody["size"])
}

func TestSearchClusterError(t *testing.T) {
	x := newIndex(t, func(*http.Request) (*http.Response, error) {
		return respond(503, `{"error":"unavailable"}`), nil
	})
	_, _, err := x.Search(context.Background(), "tee", 0, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestIndexDocument(t *testing.T) {
	var method, path string
	x := newIndex(t, func(r *http.Request) (*http.Response, error) {
		method, path = r.Method, r.URL.Path
		return respond(201, `{"result":"created"}`), nil
	})
	err := x.IndexDocument(context.Background(), Document{ID: "abc", Slug: "tee", Title: "Tee"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/items/_doc/abc", path)
}

func TestBulkIndex(t *testing.T) {
	var lines []string
	x := newIndex(t, func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		lines = strings.Split(strings.TrimSpace(string(b)), "\n")
		return respond(200, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400}}]}`), nil
	})

	failed, err := x.BulkIndex(context.Background(), []Document{{ID: "1", Slug: "a"}, {ID: "2", Slug: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"1"`)

	failed, err = x.BulkIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, failed)
}

func TestDocumentFromItem(t *testing.T) {
	it := models.Item{
		ID:            uuid.New(),
		Slug:          "tee",
		Title:         "Tee",
		Price:         decimal.NewFromInt(20),
		DiscountPrice: decimal.NewNullDecimal(decimal.NewFromInt(15)),
		Category:      &models.Category{Slug: "shirts"},
	}
	d := DocumentFromItem(it)
	assert.Equal(t, it.ID.String(), d.ID)
	assert.Equal(t, "shirts", d.Category)
	assert.True(t, d.Price.Equal(decimal.NewFromInt(15)))
}
