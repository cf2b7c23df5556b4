// Package search keeps a full-text index of offers for the admin view.
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

	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultLimit = 20

// OfferDocument is the indexed shape of an offer and its project.
type OfferDocument struct {
	OfferID       string    `json:"offer_id"`
	ProjectID     string    `json:"project_id"`
	CustomerEmail string    `json:"customer_email"`
	Domain        string    `json:"domain"`
	Industry      string    `json:"industry"`
	Cities        []string  `json:"cities"`
	Keywords      []string  `json:"keywords"`
	Package       string    `json:"package"`
	Status        string    `json:"status"`
	MonthlyPrice  int       `json:"monthly_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentFromEvent builds the document indexed right after submission.
func DocumentFromEvent(ev models.OfferSubmitted) OfferDocument {
	return OfferDocument{
		OfferID:       ev.OfferID,
		ProjectID:     ev.ProjectID,
		CustomerEmail: ev.CustomerEmail,
		Domain:        ev.Domain,
		Industry:      ev.Industry,
		Cities:        ev.Cities,
		Keywords:      ev.Keywords,
		Package:       string(ev.Package),
		Status:        string(models.OfferPending),
		MonthlyPrice:  ev.Estimate.MonthlyPrice,
		CreatedAt:     ev.SubmittedAt,
	}
}

// Hit is one search result.
type Hit struct {
	Score    float64       `json:"score"`
	Document OfferDocument `json:"document"`
}

// Result is a page of hits.
type Result struct {
	Total int   `json:"total"`
	Hits  []Hit `json:"hits"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "offer_id":       {"type": "keyword"},
      "project_id":     {"type": "keyword"},
      "customer_email": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "domain":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "industry":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "cities":         {"type": "text"},
      "keywords":       {"type": "text"},
      "package":        {"type": "keyword"},
      "status":         {"type": "keyword"},
      "monthly_price":  {"type": "integer"},
      "created_at":     {"type": "date"}
    }
  }
}`

// OfferIndex reads and writes the offers index.
type OfferIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewOfferIndex(client *elasticsearch.Client, index string, log logger.Logger) *OfferIndex {
	if index == "" {
		index = "offers"
	}
	return &OfferIndex{client: client, index: index, logger: logger.Component(log, "search")}
}

// EnsureIndex creates the index with its mapping if it does not exist.
func (x *OfferIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewSearchQueryFailedError("index_exists", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return errors.NewSearchQueryFailedError("index_exists", fmt.Errorf("status %s", res.Status()))
	}

	res, err = x.client.Indices.Create(x.index,
		x.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		x.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError("index_create", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError("index_create", responseError(res))
	}

	x.logger.Info("created search index", map[string]interface{}{"index": x.index})
	return nil
}

// Index writes the document under its offer id, replacing any previous version.
func (x *OfferIndex) Index(ctx context.Context, doc OfferDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal offer document: %w", err)
	}

	res, err := x.client.Index(x.index, bytes.NewReader(body),
		x.client.Index.WithDocumentID(doc.OfferID),
		x.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError("index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError("index", responseError(res))
	}
	return nil
}

// UpdateStatus changes the status of an indexed offer.
func (x *OfferIndex) UpdateStatus(ctx context.Context, offerID string, status models.OfferStatus) error {
	body, _ := json.Marshal(map[string]interface{}{
		"doc": map[string]string{"status": string(status)},
	})

	res, err := x.client.Update(x.index, offerID, bytes.NewReader(body), x.client.Update.WithContext(ctx))
	if err != nil {
		return errors.NewSearchQueryFailedError("update", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return errors.NewResourceNotFoundError("indexed offer", "id: "+offerID)
	}
	if res.IsError() {
		return errors.NewSearchQueryFailedError("update", responseError(res))
	}
	return nil
}

// Search runs a fuzzy match over the text fields, optionally filtered by status.
func (x *OfferIndex) Search(ctx context.Context, query string, status models.OfferStatus, limit int) (Result, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}

	body, err := json.Marshal(buildQuery(query, status, limit))
	if err != nil {
		return Result{}, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return Result{}, errors.NewSearchQueryFailedError("search", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Result{}, errors.NewIndexNotFoundError(x.index)
	}
	if res.IsError() {
		return Result{}, errors.NewSearchQueryFailedError("search", responseError(res))
	}

	var raw struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64       `json:"_score"`
				Source OfferDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return Result{}, errors.NewSearchQueryFailedError("search", fmt.Errorf("decode response: %w", err))
	}

	out := Result{Total: raw.Hits.Total.Value, Hits: make([]Hit, 0, len(raw.Hits.Hits))}
	for _, h := range raw.Hits.Hits {
		out.Hits = append(out.Hits, Hit{Score: h.Score, Document: h.Source})
	}
	return out, nil
}

func buildQuery(query string, status models.OfferStatus, limit int) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	if q := strings.TrimSpace(query); q != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":     q,
					"fields":    []string{"domain^3", "customer_email^2", "industry", "cities", "keywords"},
					"fuzziness": "AUTO",
				},
			},
		}
	} else {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	if status != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"status": string(status)}},
		}
	}

	return map[string]interface{}{
		"size":  limit,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
	}
}

func responseError(res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("status %s: %s", res.Status(), strings.TrimSpace(string(msg)))
}
