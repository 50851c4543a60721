package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
)

const DefaultIndex = "accounts"

// Account is the searchable projection of a user. Credentials are never indexed.
type Account struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Roles      []string  `json:"roles"`
	IsActive   bool      `json:"isActive"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Directory struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}
	return client, nil
}

func NewDirectory(es *elasticsearch.Client, index string) *Directory {
	if index == "" {
		index = DefaultIndex
	}
	return &Directory{es: es, index: index}
}

// Ping checks that the cluster answers.
func (d *Directory) Ping(ctx context.Context) error {
	res, err := d.es.Info(d.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("info", res.StatusCode, res.Body)
	}
	return nil
}

func (d *Directory) IndexAccount(ctx context.Context, a Account) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("es: marshal account: %w", err)
	}
	res, err := d.es.Index(
		d.index,
		bytes.NewReader(body),
		d.es.Index.WithContext(ctx),
		d.es.Index.WithDocumentID(a.ID),
		d.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: index %s: %w", a.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.StatusCode, res.Body)
	}
	return nil
}

// DeleteAccount removes a document. A missing document is not an error.
func (d *Directory) DeleteAccount(ctx context.Context, id string) error {
	res, err := d.es.Delete(
		d.index,
		id,
		d.es.Delete.WithContext(ctx),
		d.es.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res.StatusCode, res.Body)
	}
	return nil
}

// SearchAccounts returns matching account ids in relevance order.
func (d *Directory) SearchAccounts(ctx context.Context, query string, from, size int) (int64, []string, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     strings.TrimSpace(query),
				"fields":    []string{"email^3", "firstName^2", "lastName^2", "roles"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := d.es.Search(
		d.es.Search.WithContext(ctx),
		d.es.Search.WithIndex(d.index),
		d.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, nil, nil
	}
	if res.IsError() {
		return 0, nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id := hit.Source.ID
		if id == "" {
			id = hit.ID
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op string, status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("es: %s failed with status %d: %s", op, status, strings.TrimSpace(string(raw)))
}
