package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// ArticleStore implements storage.ArticleStore using PostgreSQL.
type ArticleStore struct {
	pool *Pool
}

// NewArticleStore creates a new ArticleStore.
func NewArticleStore(pool *Pool) *ArticleStore {
	return &ArticleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArticleStore = (*ArticleStore)(nil)

const articleColumns = `
	id, url, title, content, source, scraped_at, content_hash,
	processing_status, error_log, risk_score, veracity_score, source_count
`

// Insert adds a new article. Returns ErrDuplicateKey if the URL exists.
func (s *ArticleStore) Insert(ctx context.Context, a *domain.Article) error {
	query := `
		INSERT INTO articles (
			id, url, title, content, source, scraped_at, content_hash,
			processing_status, error_log, risk_score, veracity_score, source_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.URL,
		a.Title,
		a.Content,
		a.Source,
		a.ScrapedAt,
		a.ContentHash,
		string(a.Status),
		a.ErrorLog,
		a.RiskScore,
		a.VeracityScore,
		a.SourceCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetByID retrieves an article by its ID. Returns ErrNotFound if not exists.
func (s *ArticleStore) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	a, err := scanArticle(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get article by id: %w", err)
	}
	return a, nil
}

// GetByURL retrieves an article by URL. Returns ErrNotFound if not exists.
func (s *ArticleStore) GetByURL(ctx context.Context, url string) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE url = $1`

	row := s.pool.QueryRow(ctx, query, url)
	a, err := scanArticle(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get article by url: %w", err)
	}
	return a, nil
}

// GetByContentHashSince retrieves articles sharing a content fingerprint
// scraped at or after the cutoff, ordered by scraped_at ASC.
func (s *ArticleStore) GetByContentHashSince(ctx context.Context, hash string, since time.Time) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE content_hash = $1 AND scraped_at >= $2
		ORDER BY scraped_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, hash, since)
	if err != nil {
		return nil, fmt.Errorf("get articles by content hash: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// UpdateStatus transitions an article's processing status.
func (s *ArticleStore) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errorLog *string) error {
	query := `
		UPDATE articles
		SET processing_status = $2, error_log = COALESCE($3, error_log)
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(status), errorLog)
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateVeracity sets the multi-source confirmation fields.
func (s *ArticleStore) UpdateVeracity(ctx context.Context, id string, veracity float64, sourceCount int) error {
	query := `
		UPDATE articles
		SET veracity_score = $2, source_count = $3
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, veracity, sourceCount)
	if err != nil {
		return fmt.Errorf("update article veracity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByStatus retrieves up to limit articles in the given status,
// ordered by scraped_at ASC.
func (s *ArticleStore) ListByStatus(ctx context.Context, status domain.ProcessingStatus, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE processing_status = $1
		ORDER BY scraped_at ASC, id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list articles by status: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// ListRecent retrieves up to limit articles scraped at or after since,
// ordered by scraped_at DESC. A zero since means no cutoff.
func (s *ArticleStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE ($1::timestamptz IS NULL OR scraped_at >= $1)
		ORDER BY scraped_at DESC, id DESC
		LIMIT $2
	`

	var cutoff *time.Time
	if !since.IsZero() {
		cutoff = &since
	}
	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// CountSince counts articles scraped at or after the cutoff.
func (s *ArticleStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles WHERE scraped_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// scanArticle scans a single row into an Article.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var a domain.Article
	var statusStr string

	err := row.Scan(
		&a.ID,
		&a.URL,
		&a.Title,
		&a.Content,
		&a.Source,
		&a.ScrapedAt,
		&a.ContentHash,
		&statusStr,
		&a.ErrorLog,
		&a.RiskScore,
		&a.VeracityScore,
		&a.SourceCount,
	)
	if err != nil {
		return nil, err
	}

	a.Status = domain.ProcessingStatus(statusStr)
	return &a, nil
}

// scanArticles scans multiple rows into a slice of Article.
func scanArticles(rows pgx.Rows) ([]*domain.Article, error) {
	var articles []*domain.Article

	for rows.Next() {
		var a domain.Article
		var statusStr string

		err := rows.Scan(
			&a.ID,
			&a.URL,
			&a.Title,
			&a.Content,
			&a.Source,
			&a.ScrapedAt,
			&a.ContentHash,
			&statusStr,
			&a.ErrorLog,
			&a.RiskScore,
			&a.VeracityScore,
			&a.SourceCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}

		a.Status = domain.ProcessingStatus(statusStr)
		articles = append(articles, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return articles, nil
}
