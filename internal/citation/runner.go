package citation

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geo-tracker/internal/model"
)

// Engine identifies the answer-generation engine in recorded results.
const Engine = "perplexity"

// defaultInterval is the minimum gap between consecutive API calls. A fixed
// one-second spacing keeps a full run well under the external API's rate
// limits without adaptive backpressure.
const defaultInterval = time.Second

// CitationFetcher fetches the normalized citation list for one query.
type CitationFetcher interface {
	FetchCitations(ctx context.Context, queryText string) ([]string, error)
}

// ResultWriter persists one verification outcome, merging on the
// (query_id, engine, check_date) key.
type ResultWriter interface {
	UpsertResult(ctx context.Context, r model.CheckResult) (*model.CheckResult, error)
}

// Summary reports the terminal state of a verification run.
type Summary struct {
	Checked  int `json:"checked"`
	Failures int `json:"failures"`
	Total    int `json:"total"`
}

// Option configures the runner.
type Option func(*Runner)

// WithInterval overrides the minimum inter-call interval. Zero or negative
// disables throttling.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			r.limiter = nil
		}
	}
}

// WithCheckDate overrides the check-date source, used by tests.
func WithCheckDate(fn func() string) Option {
	return func(r *Runner) {
		r.checkDate = fn
	}
}

// Runner executes one verification pass over a project's active queries.
// Execution is strictly sequential: each item is fetched, matched, and
// written before the next one starts, so an interrupted run leaves every
// completed item durably recorded.
type Runner struct {
	fetcher   CitationFetcher
	writer    ResultWriter
	limiter   *rate.Limiter
	checkDate func() string
}

// NewRunner creates a Runner throttled to one API call per second.
func NewRunner(fetcher CitationFetcher, writer ResultWriter, opts ...Option) *Runner {
	r := &Runner{
		fetcher:   fetcher,
		writer:    writer,
		limiter:   rate.NewLimiter(rate.Every(defaultInterval), 1),
		checkDate: model.Today,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run checks every query against the project's domain and upserts one dated
// result per item. Per-item failures (fetch or write) are counted and the
// run continues; the only early exit is context cancellation, which returns
// the partial summary alongside the error.
func (r *Runner) Run(ctx context.Context, projectID, domain string, queries []model.Query) (Summary, error) {
	summary := Summary{Total: len(queries)}
	checkDate := r.checkDate()

	zap.L().Info("citation check started",
		zap.String("project_id", projectID),
		zap.String("domain", domain),
		zap.String("check_date", checkDate),
		zap.Int("total", summary.Total),
	)

	for i, q := range queries {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return summary, eris.Wrap(err, "citation: run cancelled")
			}
		} else if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "citation: run cancelled")
		}

		citations, err := r.fetcher.FetchCitations(ctx, q.Text)
		if err != nil {
			summary.Failures++
			zap.L().Warn("citation fetch failed",
				zap.Int("item", i+1),
				zap.String("query_id", q.ID),
				zap.Error(err),
			)
			continue
		}

		m := MatchDomain(domain, citations)

		result := model.CheckResult{
			QueryID:     q.ID,
			ProjectID:   projectID,
			CheckDate:   checkDate,
			Appears:     m.Appears,
			Position:    m.Position,
			CitationURL: m.CitationURL,
			Engine:      Engine,
			RawSources:  citations,
		}

		// Written immediately per item, not batched, so an interrupted run
		// leaves completed items durable.
		if _, err := r.writer.UpsertResult(ctx, result); err != nil {
			summary.Failures++
			zap.L().Warn("result write failed",
				zap.Int("item", i+1),
				zap.String("query_id", q.ID),
				zap.Error(err),
			)
			continue
		}

		summary.Checked++
		zap.L().Debug("query checked",
			zap.Int("item", i+1),
			zap.Int("total", summary.Total),
			zap.Bool("appears", m.Appears),
			zap.Int("position", m.Position),
		)
	}

	zap.L().Info("citation check complete",
		zap.String("project_id", projectID),
		zap.Int("checked", summary.Checked),
		zap.Int("failures", summary.Failures),
		zap.Int("total", summary.Total),
	)
	return summary, nil
}
