package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

func TestBuildSearchBody(t *testing.T) {
	t.Run("query with filters", func(t *testing.T) {
		body := buildSearchBody("이체 오류", SearchFilter{
			CompanyID: 7,
			Sentiment: types.SentimentNegative,
			Platform:  types.PlatformAppStore,
			Size:      5,
		})

		boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
		must := boolQuery["must"].([]any)
		require.Len(t, must, 1)
		match := must[0].(map[string]any)["match"].(map[string]any)
		assert.Equal(t, "이체 오류", match["content"])

		filters := boolQuery["filter"].([]any)
		assert.Len(t, filters, 3)
		assert.Equal(t, 5, body["size"])
	})

	t.Run("empty query matches all", func(t *testing.T) {
		body := buildSearchBody("", SearchFilter{})

		boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
		must := boolQuery["must"].([]any)
		require.Len(t, must, 1)
		_, ok := must[0].(map[string]any)["match_all"]
		assert.True(t, ok)
		_, hasFilter := boolQuery["filter"]
		assert.False(t, hasFilter)
		assert.Equal(t, defaultSearchSize, body["size"])
	})

	t.Run("filters without query", func(t *testing.T) {
		body := buildSearchBody("", SearchFilter{Department: "UX팀"})

		boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
		_, hasMust := boolQuery["must"]
		assert.False(t, hasMust)
		filters := boolQuery["filter"].([]any)
		require.Len(t, filters, 1)
		term := filters[0].(map[string]any)["term"].(map[string]any)
		assert.Equal(t, "UX팀", term["department"])
	})
}

func TestDocumentFromReview(t *testing.T) {
	sentiment := types.SentimentPositive
	score := 0.92
	review := &types.Review{
		ID:             42,
		CompanyID:      7,
		Content:        "앱이 정말 편리해요",
		Rating:         5,
		Platform:       types.PlatformAppStore,
		Sentiment:      &sentiment,
		SentimentScore: &score,
	}

	doc := DocumentFromReview(review, "UX팀")
	assert.Equal(t, int64(42), doc.ReviewID)
	assert.Equal(t, types.SentimentPositive, doc.Sentiment)
	assert.Equal(t, 0.92, doc.SentimentScore)
	assert.Equal(t, "UX팀", doc.Department)

	bare := DocumentFromReview(&types.Review{ID: 43, CompanyID: 7}, "")
	assert.Empty(t, bare.Sentiment)
	assert.Zero(t, bare.SentimentScore)
	assert.Empty(t, bare.Department)
}

// testIndex connects to a live cluster when TEST_OPENSEARCH_URL is set and
// provisions a throwaway index that is dropped on cleanup.
func testIndex(t *testing.T) *Index {
	t.Helper()
	url := os.Getenv("TEST_OPENSEARCH_URL")
	if url == "" {
		t.Skip("TEST_OPENSEARCH_URL not set; skipping OpenSearch integration test")
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{url},
		Username:  os.Getenv("TEST_OPENSEARCH_USER"),
		Password:  os.Getenv("TEST_OPENSEARCH_PASSWORD"),
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	require.NoError(t, err)

	log, err := logger.New("development")
	require.NoError(t, err)

	name := fmt.Sprintf("reviews-test-%d", time.Now().UnixNano())
	idx := NewWithClient(client, name, log)
	require.NoError(t, idx.EnsureIndex(context.Background()))
	t.Cleanup(func() {
		res, err := client.Indices.Delete([]string{name})
		if err == nil {
			res.Body.Close()
		}
	})
	return idx
}

func TestIndexRoundTrip(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	// EnsureIndex on an existing index is a no-op.
	require.NoError(t, idx.EnsureIndex(ctx))

	doc := ReviewDocument{
		ReviewID:       1,
		CompanyID:      7,
		Content:        "앱이 정말 편리해요",
		Rating:         5,
		ReviewDate:     time.Now().UTC(),
		Platform:       types.PlatformAppStore,
		Sentiment:      types.SentimentPositive,
		SentimentScore: 0.92,
		Department:     "UX팀",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, idx.Upsert(ctx, doc))
	// Replaying the same write overwrites instead of duplicating.
	require.NoError(t, idx.Upsert(ctx, doc))
	time.Sleep(1500 * time.Millisecond)

	hits, err := idx.Search(ctx, "편리해요", SearchFilter{CompanyID: 7})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].Document.ReviewID)
	assert.Equal(t, types.SentimentPositive, hits[0].Document.Sentiment)

	hits, err = idx.Search(ctx, "", SearchFilter{Sentiment: types.SentimentNegative})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Delete(ctx, 1))
	// Deleting an already removed document is not an error.
	require.NoError(t, idx.Delete(ctx, 1))
}
