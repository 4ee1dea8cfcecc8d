package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

const maxHits = 10000

var mapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":        map[string]any{"type": "keyword"},
			"name":      map[string]any{"type": "keyword"},
			"category":  map[string]any{"type": "keyword"},
			"price":     map[string]any{"type": "double"},
			"quantity":  map[string]any{"type": "integer"},
			"imageUrl":  map[string]any{"type": "keyword", "index": false},
			"createdAt": map[string]any{"type": "date"},
			"updatedAt": map[string]any{"type": "date"},
		},
	},
}

// Index mirrors sweets into an Elasticsearch index. The primary store
// stays authoritative.
type Index struct {
	ES   *elasticsearch.Client
	Name string
}

func NewIndex(es *elasticsearch.Client, name string) *Index {
	return &Index{ES: es, Name: name}
}

func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.ES.Indices.Exists([]string{i.Name}, i.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: exists %s: %w", i.Name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := encode(mapping)
	if err != nil {
		return err
	}
	res, err = i.ES.Indices.Create(i.Name,
		i.ES.Indices.Create.WithContext(ctx),
		i.ES.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("es: create %s: %w", i.Name, err)
	}
	return checkResponse(res, "create index")
}

func (i *Index) Upsert(ctx context.Context, s models.Sweet) error {
	body, err := encode(s)
	if err != nil {
		return err
	}
	res, err := i.ES.Index(i.Name, body,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(s.ID),
		i.ES.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("es: index %s: %w", s.ID, err)
	}
	return checkResponse(res, "index")
}

func (i *Index) Delete(ctx context.Context, id string) error {
	res, err := i.ES.Delete(i.Name, id,
		i.ES.Delete.WithContext(ctx),
		i.ES.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("es: delete %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete")
}

func (i *Index) Search(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error) {
	body, err := encode(BuildQuery(f))
	if err != nil {
		return nil, err
	}
	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Name),
		i.ES.Search.WithBody(body),
	)
	if err != nil {
		return nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Sweet `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("es: decode search: %w", err)
	}

	out := make([]models.Sweet, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		out[n] = hit.Source
	}
	return out, nil
}

// BuildQuery turns a filter into a bool query. Name and category match
// as literal case-insensitive substrings.
func BuildQuery(f models.SweetFilter) map[string]any {
	var filters []any
	if f.Name != "" {
		filters = append(filters, contains("name", f.Name))
	}
	if f.Category != "" {
		filters = append(filters, contains("category", f.Category))
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := map[string]any{}
		if f.MinPrice != nil {
			rng["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			rng["lte"] = *f.MaxPrice
		}
		filters = append(filters, map[string]any{"range": map[string]any{"price": rng}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(filters) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": filters}}
	}
	return map[string]any{
		"query": query,
		"sort":  []any{map[string]any{"createdAt": map[string]any{"order": "desc"}}},
		"size":  maxHits,
	}
}

func contains(field, value string) map[string]any {
	return map[string]any{
		"wildcard": map[string]any{
			field: map[string]any{
				"value":            "*" + escapeWildcard(value) + "*",
				"case_insensitive": true,
			},
		},
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

func encode(v any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("es: encode: %w", err)
	}
	return &buf, nil
}

func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: %s: %s: %s", op, res.Status(), msg)
	}
	return nil
}
