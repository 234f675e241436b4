package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/reai/reai-backend/internal/clients/llm"
	"github.com/reai/reai-backend/internal/observability"
	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/search"
	"github.com/reai/reai-backend/internal/types"
)

// CacheStore is the slice of the cache the pipeline needs. Failures here
// never fail a processed review; the sweep repairs divergence.
type CacheStore interface {
	SetReview(ctx context.Context, review *types.Review) error
	InvalidateReview(ctx context.Context, id int64) error
}

// SearchStore is the slice of the search index the pipeline needs.
type SearchStore interface {
	Upsert(ctx context.Context, doc search.ReviewDocument) error
	Delete(ctx context.Context, reviewID int64) error
}

// Outcome reports what Process did with a review.
type Outcome struct {
	ReviewID int64 `json:"review_id"`
	// AlreadyProcessed is true when the review was classified before this
	// invocation ran its transition, either earlier or by a concurrent
	// attempt that won the race. The fields below then reflect the stored
	// result, not this invocation's work.
	AlreadyProcessed bool    `json:"already_processed"`
	Sentiment        string  `json:"sentiment"`
	SentimentScore   float64 `json:"sentiment_score"`
	DepartmentID     int64   `json:"department_id"`
	Department       string  `json:"department"`
}

// Pipeline drives one review from raw text to a classified, routed,
// propagated record. The record store transaction is the only durability
// boundary; cache and search writes after it are best effort.
type Pipeline struct {
	db          *gorm.DB
	reviews     repos.ReviewRepo
	departments repos.DepartmentRepo
	agentLogs   repos.AgentLogRepo
	router      *Router
	classifier  llm.Classifier
	cache       CacheStore
	search      SearchStore
	log         *logger.Logger
}

func New(
	db *gorm.DB,
	reviews repos.ReviewRepo,
	departments repos.DepartmentRepo,
	agentLogs repos.AgentLogRepo,
	router *Router,
	classifier llm.Classifier,
	cache CacheStore,
	searchIndex SearchStore,
	baseLog *logger.Logger,
) *Pipeline {
	return &Pipeline{
		db:          db,
		reviews:     reviews,
		departments: departments,
		agentLogs:   agentLogs,
		router:      router,
		classifier:  classifier,
		cache:       cache,
		search:      searchIndex,
		log:         baseLog.With("component", "Pipeline"),
	}
}

const classifierAgent = "sentiment_classifier"

// Process classifies and routes one review. It is safe to invoke any number
// of times and from any number of goroutines for the same id: exactly one
// invocation performs the durable transition, every later or losing one
// observes the stored result.
func (p *Pipeline) Process(ctx context.Context, reviewID int64) (*Outcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.Int64("review.id", reviewID)),
	)
	defer span.End()

	out, err := p.process(ctx, reviewID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("review.already_processed", out.AlreadyProcessed),
		attribute.String("review.sentiment", out.Sentiment),
		attribute.String("review.department", out.Department),
	)
	return out, nil
}

func (p *Pipeline) process(ctx context.Context, reviewID int64) (*Outcome, error) {
	start := time.Now()
	dbc := dbctx.Context{Ctx: ctx}

	review, err := p.reviews.GetByID(dbc, reviewID)
	if err != nil {
		return nil, fmt.Errorf("load review %d: %w", reviewID, err)
	}
	if review.State == types.ReviewStateProcessed {
		return p.storedOutcome(dbc, review)
	}

	// Classification runs outside any transaction; a slow provider call must
	// not hold row locks.
	classification, cerr := p.classifier.Classify(ctx, review.Content)
	if cerr != nil {
		recorded, ferr := p.recordFailure(ctx, review, cerr, time.Since(start))
		if ferr != nil {
			return nil, ferr
		}
		if !recorded {
			// A concurrent attempt reached processed before this failure could
			// land; its result stands and this invocation is a no-op.
			fresh, rerr := p.reviews.GetByID(dbc, review.ID)
			if rerr != nil {
				return nil, fmt.Errorf("reload review %d: %w", review.ID, rerr)
			}
			return p.storedOutcome(dbc, fresh)
		}
		return nil, fmt.Errorf("classify review %d: %w", review.ID, cerr)
	}

	var (
		department *types.Department
		won        bool
	)
	txErr := p.db.Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}

		var rerr error
		department, rerr = p.router.Resolve(txc, classification.DepartmentSignal)
		if rerr != nil {
			return fmt.Errorf("resolve department: %w", rerr)
		}

		var uerr error
		won, uerr = p.reviews.MarkClassified(txc, review.ID, classification.Sentiment, classification.Confidence, department.ID)
		if uerr != nil {
			return fmt.Errorf("mark classified: %w", uerr)
		}
		if !won {
			return nil
		}

		result, _ := json.Marshal(map[string]any{
			"sentiment":  classification.Sentiment,
			"confidence": classification.Confidence,
			"department": department.Name,
		})
		if _, lerr := p.agentLogs.Create(txc, &types.AgentLog{
			ReviewID:       review.ID,
			AgentType:      classifierAgent,
			Action:         "classify",
			Result:         string(result),
			ProcessingTime: time.Since(start).Seconds(),
		}); lerr != nil {
			return fmt.Errorf("write agent log: %w", lerr)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if !won {
		// A concurrent attempt finished first; its result stands and this
		// invocation wrote nothing.
		fresh, rerr := p.reviews.GetByID(dbc, review.ID)
		if rerr != nil {
			return nil, fmt.Errorf("reload review %d: %w", review.ID, rerr)
		}
		return p.storedOutcome(dbc, fresh)
	}

	p.propagate(ctx, review.ID, department.Name)

	p.log.Info("Review classified",
		"review_id", review.ID,
		"sentiment", classification.Sentiment,
		"department", department.Name,
		"duration", time.Since(start),
	)
	return &Outcome{
		ReviewID:       review.ID,
		Sentiment:      classification.Sentiment,
		SentimentScore: classification.Confidence,
		DepartmentID:   department.ID,
		Department:     department.Name,
	}, nil
}

// recordFailure persists a failed attempt and its audit row. It reports
// whether the failure was recorded; false means the review reached processed
// concurrently and the attempt left no trace.
func (p *Pipeline) recordFailure(ctx context.Context, review *types.Review, cause error, elapsed time.Duration) (bool, error) {
	recorded := false
	txErr := p.db.Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}

		ok, err := p.reviews.MarkFailed(txc, review.ID, cause.Error())
		if err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		if !ok {
			// Already processed by a concurrent attempt; nothing to record.
			return nil
		}
		recorded = true
		if _, err := p.agentLogs.Create(txc, &types.AgentLog{
			ReviewID:       review.ID,
			AgentType:      classifierAgent,
			Action:         "classify",
			Result:         fmt.Sprintf("error: %v", cause),
			ProcessingTime: elapsed.Seconds(),
		}); err != nil {
			return fmt.Errorf("write agent log: %w", err)
		}
		return nil
	})
	if txErr != nil {
		p.log.Error("Failed to record classification failure", "review_id", review.ID, "error", txErr)
		return false, txErr
	}
	if recorded {
		p.log.Warn("Classification failed",
			"review_id", review.ID,
			"retryable", llm.IsRetryable(cause),
			"error", cause,
		)
	}
	return recorded, nil
}

// storedOutcome builds an Outcome from an already processed row.
func (p *Pipeline) storedOutcome(dbc dbctx.Context, review *types.Review) (*Outcome, error) {
	out := &Outcome{ReviewID: review.ID, AlreadyProcessed: true}
	if review.Sentiment != nil {
		out.Sentiment = *review.Sentiment
	}
	if review.SentimentScore != nil {
		out.SentimentScore = *review.SentimentScore
	}
	if review.DepartmentID != nil {
		out.DepartmentID = *review.DepartmentID
		if d, err := p.departments.GetByID(dbc, *review.DepartmentID); err == nil {
			out.Department = d.Name
		}
	}
	return out, nil
}

// propagate pushes the committed result to the cache and the search index.
// Errors are logged and swallowed; both systems converge through the
// reconciliation sweep.
func (p *Pipeline) propagate(ctx context.Context, reviewID int64, departmentName string) {
	fresh, err := p.reviews.GetByID(dbctx.Context{Ctx: ctx}, reviewID)
	if err != nil {
		p.log.Warn("Propagation skipped, review reload failed", "review_id", reviewID, "error", err)
		return
	}
	if p.cache != nil {
		if err := p.cache.SetReview(ctx, fresh); err != nil {
			p.log.Warn("Cache propagation failed", "review_id", reviewID, "error", err)
		}
	}
	if p.search != nil {
		if err := p.search.Upsert(ctx, search.DocumentFromReview(fresh, departmentName)); err != nil {
			p.log.Warn("Search propagation failed", "review_id", reviewID, "error", err)
		}
	}
}
