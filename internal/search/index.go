package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/platform/logger"
)

// indexMapping uses the nori analyzer so Korean review text tokenizes
// properly; everything faceted stays a keyword.
const indexMapping = `{
  "settings": {
    "index": {
      "number_of_shards": 1,
      "number_of_replicas": 0
    },
    "analysis": {
      "analyzer": {
        "korean": {
          "type": "custom",
          "tokenizer": "nori_tokenizer",
          "filter": ["nori_part_of_speech", "lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "review_id":       {"type": "long"},
      "company_id":      {"type": "long"},
      "content":         {"type": "text", "analyzer": "korean"},
      "rating":          {"type": "byte"},
      "review_date":     {"type": "date"},
      "platform":        {"type": "keyword"},
      "sentiment":       {"type": "keyword"},
      "sentiment_score": {"type": "float"},
      "department":      {"type": "keyword"},
      "created_at":      {"type": "date"}
    }
  }
}`

// Index wraps the OpenSearch client for the review index. Writes are
// best-effort from the caller's perspective; a failed write surfaces an
// error and the reconciliation sweep repairs the divergence later.
type Index struct {
	client *opensearch.Client
	index  string
	log    *logger.Logger
}

func New(cfg app.SearchConfig, log *logger.Logger) (*Index, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	log.Info("OpenSearch client initialized", "url", cfg.URL, "index", cfg.Index)
	return &Index{client: client, index: cfg.Index, log: log}, nil
}

// NewWithClient is used by tests that point at a live cluster.
func NewWithClient(client *opensearch.Client, index string, log *logger.Logger) *Index {
	return &Index{client: client, index: index, log: log}
}

// EnsureIndex creates the review index if it does not already exist.
func (s *Index) EnsureIndex(ctx context.Context) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{s.index}}
	res, err := exists.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %q: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	create := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(indexMapping),
	}
	cres, err := create.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %q: %w", s.index, err)
	}
	defer cres.Body.Close()
	if cres.IsError() {
		body, _ := io.ReadAll(cres.Body)
		return fmt.Errorf("create index %q: %s: %s", s.index, cres.Status(), string(body))
	}
	s.log.Info("Search index created", "index", s.index)
	return nil
}

func (s *Index) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("ping opensearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping opensearch: %s", res.Status())
	}
	return nil
}

// Upsert writes the document under the review's id so replays of the same
// transition overwrite rather than duplicate.
func (s *Index) Upsert(ctx context.Context, doc ReviewDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal review document %d: %w", doc.ReviewID, err)
	}
	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(doc.ReviewID, 10),
		Body:       bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index review %d: %w", doc.ReviewID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index review %d: %s: %s", doc.ReviewID, res.Status(), string(body))
	}
	return nil
}

// Delete removes the review's document. A missing document is not an
// error; deletes must be safe to replay.
func (s *Index) Delete(ctx context.Context, reviewID int64) error {
	req := opensearchapi.DeleteRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(reviewID, 10),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete review %d: %w", reviewID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete review %d: %s: %s", reviewID, res.Status(), string(body))
	}
	return nil
}

// SearchFilter narrows a full-text query. Zero values mean "no filter".
type SearchFilter struct {
	CompanyID  int64
	Sentiment  string
	Platform   string
	Department string
	Size       int
}

type SearchHit struct {
	Score    float64
	Document ReviewDocument
}

const defaultSearchSize = 20

// buildSearchBody assembles the bool query: a match clause on content when
// a query string is present, term filters for the rest. Results order by
// relevance first, recency second.
func buildSearchBody(query string, f SearchFilter) map[string]any {
	boolQuery := map[string]any{}
	if query != "" {
		boolQuery["must"] = []any{
			map[string]any{"match": map[string]any{"content": query}},
		}
	}
	var filters []any
	if f.CompanyID != 0 {
		filters = append(filters, map[string]any{"term": map[string]any{"company_id": f.CompanyID}})
	}
	if f.Sentiment != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"sentiment": f.Sentiment}})
	}
	if f.Platform != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"platform": f.Platform}})
	}
	if f.Department != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"department": f.Department}})
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	}
	size := f.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  size,
		"sort": []any{
			map[string]any{"_score": map[string]any{"order": "desc"}},
			map[string]any{"created_at": map[string]any{"order": "desc"}},
		},
	}
}

// Search runs a full-text query with optional filters.
func (s *Index) Search(ctx context.Context, query string, f SearchFilter) ([]SearchHit, error) {
	payload, err := json.Marshal(buildSearchBody(query, f))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}
	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %q: %s: %s", s.index, res.Status(), string(body))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source ReviewDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, SearchHit{Score: h.Score, Document: h.Source})
	}
	return hits, nil
}
