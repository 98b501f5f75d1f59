package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/wmo-decoder/internal/ai"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// ReplyCache stores raw model replies keyed by model and normalised query.
// Only the reply is cached; parsing always happens on read.
type ReplyCache struct {
	db     *sql.DB
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewReplyCache creates the reply table on db. A ttl of 0 keeps entries forever.
func NewReplyCache(db *sql.DB, ttl time.Duration, log *logger.Logger) (*ReplyCache, error) {
	c := &ReplyCache{
		db:     db,
		ttl:    ttl,
		logger: log.Named("sqlite-replies"),
		now:    time.Now,
	}
	if err := c.initDB(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ReplyCache) initDB() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS model_replies (
			model TEXT NOT NULL,
			query_key TEXT NOT NULL,
			reply_text TEXT NOT NULL,
			grounding_urls TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (model, query_key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create model_replies table: %w", err)
	}

	_, err = c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_model_replies_created_at ON model_replies(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}
	return nil
}

// QueryKey normalises a query so "+ra" and " +RA " share an entry
func QueryKey(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

// Get returns the cached reply, if present and not expired
func (c *ReplyCache) Get(ctx context.Context, model, query string) (*ai.GenerateResponse, bool, error) {
	var text, urlsJSON string
	var createdAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT reply_text, grounding_urls, created_at FROM model_replies WHERE model = ? AND query_key = ?`,
		model, QueryKey(query),
	).Scan(&text, &urlsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cached reply: %w", err)
	}

	if c.expired(createdAt) {
		c.logger.Debug("Cached reply expired",
			logger.String("model", model),
			logger.String("query_key", QueryKey(query)))
		return nil, false, nil
	}

	var urls []string
	if err := json.Unmarshal([]byte(urlsJSON), &urls); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached grounding urls: %w", err)
	}

	return &ai.GenerateResponse{Text: text, GroundingURLs: urls}, true, nil
}

// Put stores or replaces the reply for model and query
func (c *ReplyCache) Put(ctx context.Context, model, query string, reply *ai.GenerateResponse) error {
	urls := reply.GroundingURLs
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode grounding urls: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO model_replies (model, query_key, reply_text, grounding_urls, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model, query_key) DO UPDATE SET
			reply_text = excluded.reply_text,
			grounding_urls = excluded.grounding_urls,
			created_at = excluded.created_at`,
		model, QueryKey(query), reply.Text, string(urlsJSON), c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store reply: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed
func (c *ReplyCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM model_replies WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge replies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged replies: %w", err)
	}
	if n > 0 {
		c.logger.Info("Purged expired replies", logger.Int("count", int(n)))
	}
	return n, nil
}

func (c *ReplyCache) expired(createdAt int64) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(createdAt, 0)) > c.ttl
}
