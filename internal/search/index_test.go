package search

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake Elasticsearch
// ==========================

type fakeES struct {
	mu          sync.Mutex
	indexExists bool
	docs        map[string]OfferDocument
	lastSearch  map[string]interface{}
	created     int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	body, _ := io.ReadAll(r.Body)

	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case len(parts) == 1 && r.Method == http.MethodPut:
		f.indexExists = true
		f.created++
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	case len(parts) == 3 && parts[1] == "_doc":
		var doc OfferDocument
		_ = json.Unmarshal(body, &doc)
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))

	case len(parts) == 3 && parts[1] == "_update":
		doc, ok := f.docs[parts[2]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"document_missing_exception"}}`))
			return
		}
		var upd struct {
			Doc struct {
				Status string `json:"status"`
			} `json:"doc"`
		}
		_ = json.Unmarshal(body, &upd)
		doc.Status = upd.Doc.Status
		f.docs[parts[2]] = doc
		_, _ = w.Write([]byte(`{"result":"updated"}`))

	case len(parts) == 2 && parts[1] == "_search":
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
			return
		}
		_ = json.Unmarshal(body, &f.lastSearch)
		hits := make([]map[string]interface{}, 0, len(f.docs))
		for _, d := range f.docs {
			hits = append(hits, map[string]interface{}{"_score": 1.5, "_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": len(hits)},
				"hits":  hits,
			},
		})

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func setupIndex(t *testing.T) (*OfferIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]OfferDocument{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewOfferIndex(client, "offers", logger.NewTestLogger(t)), fake
}

func createTestEvent() models.OfferSubmitted {
	return models.OfferSubmitted{
		ProjectID:     "p-1",
		OfferID:       "o-1",
		CustomerEmail: "anna@example.se",
		Domain:        "https://stadfirma.se",
		Industry:      "Städtjänster",
		Cities:        []string{"Stockholm"},
		Keywords:      []string{"Städtjänster Stockholm"},
		Package:       models.PackagePro,
		Estimate:      models.Estimate{MonthlyPrice: 3995},
		SubmittedAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ==========================
// Tests
// ==========================

func TestEnsureIndex_CreatesOnce(t *testing.T) {
	idx, fake := setupIndex(t)

	require.NoError(t, idx.EnsureIndex(t.Context()))
	require.NoError(t, idx.EnsureIndex(t.Context()))
	assert.Equal(t, 1, fake.created)
}

func TestIndexAndSearch(t *testing.T) {
	idx, fake := setupIndex(t)
	require.NoError(t, idx.EnsureIndex(t.Context()))

	doc := DocumentFromEvent(createTestEvent())
	assert.Equal(t, "pending", doc.Status)
	require.NoError(t, idx.Index(t.Context(), doc))
	assert.Equal(t, "https://stadfirma.se", fake.docs["o-1"].Domain)

	res, err := idx.Search(t.Context(), "stadfirma", models.OfferPending, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "o-1", res.Hits[0].Document.OfferID)
	assert.Equal(t, 1.5, res.Hits[0].Score)

	assert.EqualValues(t, defaultLimit, fake.lastSearch["size"])
	q := fake.lastSearch["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, q, "filter")
	assert.Contains(t, q, "must")
}

func TestUpdateStatus(t *testing.T) {
	idx, fake := setupIndex(t)
	require.NoError(t, idx.Index(t.Context(), DocumentFromEvent(createTestEvent())))

	require.NoError(t, idx.UpdateStatus(t.Context(), "o-1", models.OfferAccepted))
	assert.Equal(t, "accepted", fake.docs["o-1"].Status)

	err := idx.UpdateStatus(t.Context(), "missing", models.OfferAccepted)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestSearch_MissingIndex(t *testing.T) {
	idx, _ := setupIndex(t)

	_, err := idx.Search(t.Context(), "", "", 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIndexNotFound))
}

func TestBuildQuery(t *testing.T) {
	all := buildQuery("  ", "", 5)
	boolQ := all["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQ, "filter")
	must := boolQ["must"].([]interface{})
	assert.Contains(t, must[0], "match_all")

	fuzzy := buildQuery("bygg", models.OfferRejected, 5)
	boolQ = fuzzy["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must = boolQ["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "bygg", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
}
