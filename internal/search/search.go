package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("search: unavailable")

// Document is the indexed projection of an item.
type Document struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Label       string          `json:"label,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func DocumentFromItem(it models.Item) Document {
	d := Document{
		ID:          it.ID.String(),
		Slug:        it.Slug,
		Title:       it.Title,
		Description: it.Description,
		Label:       string(it.Label),
		Price:       it.EffectivePrice(),
		ImageURL:    it.ImageURL,
	}
	if it.Category != nil {
		d.Category = it.Category.Slug
	}
	return d
}

type Config struct {
	URL       string
	User      string
	Password  string
	Index     string
	Transport http.RoundTripper
}

type Index struct {
	es    *elasticsearch.Client
	index string
}

func New(cfg Config) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("search: new client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = "items"
	}
	return &Index{es: client, index: index}, nil
}

func (x *Index) Ping(ctx context.Context) error {
	res, err := x.es.Info(x.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrUnavailable, res.Status())
	}
	return nil
}

func (x *Index) Search(ctx context.Context, query string, from, size int) (int64, []Document, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description", "label"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnavailable, res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func (x *Index) IndexDocument(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode document: %w", err)
	}
	res, err := x.es.Index(x.index, bytes.NewReader(data),
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index %s: %s", ErrUnavailable, doc.Slug, res.Status())
	}
	return nil
}

// BulkIndex writes docs in one _bulk request and returns how many the
// cluster rejected.
func (x *Index) BulkIndex(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]any{"index": map[string]any{"_index": x.index, "_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, fmt.Errorf("search: encode bulk meta: %w", err)
		}
		if err := enc.Encode(d); err != nil {
			return 0, fmt.Errorf("search: encode bulk doc: %w", err)
		}
	}

	res, err := x.es.Bulk(&buf, x.es.Bulk.WithContext(ctx), x.es.Bulk.WithIndex(x.index))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("%w: bulk: %s %s", ErrUnavailable, res.Status(), body)
	}

	var r struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("search: decode bulk response: %w", err)
	}
	failed := 0
	if r.Errors {
		for _, it := range r.Items {
			for _, op := range it {
				if op.Status >= 300 {
					failed++
				}
			}
		}
	}
	return failed, nil
}
