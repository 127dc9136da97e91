package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/kmorozov/clipstream/internal/models"
)

// UserIndex keeps a searchable projection of sanitized users.
type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func (i *UserIndex) IndexUser(ctx context.Context, u models.PublicUser) error {
	body, err := json.Marshal(u)
	if err != nil {
		return err
	}

	res, err := i.ES.Index(
		i.Index,
		bytes.NewReader(body),
		i.ES.Index.WithDocumentID(u.ID.String()),
		i.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index user: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index user: %s", res.Status())
	}
	return nil
}

func (i *UserIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.PublicUser, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"username^2", "full_name"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search users: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search users: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.PublicUser `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	users := make([]models.PublicUser, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		users[n] = hit.Source
	}
	return r.Hits.Total.Value, users, nil
}
