package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"idea-validator/models"
)

// PostgresStore persists validation jobs, competitors, feedback and run
// metadata to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, runs schema migrations, and
// returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS validation_jobs (
			job_id     VARCHAR(64) PRIMARY KEY,
			idea_text  TEXT        NOT NULL DEFAULT '',
			status     VARCHAR(32) NOT NULL DEFAULT 'processing',
			extra      JSONB       NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS competitors (
			id               SERIAL PRIMARY KEY,
			job_id           VARCHAR(64) NOT NULL REFERENCES validation_jobs(job_id),
			name             TEXT        NOT NULL,
			description      TEXT        NOT NULL DEFAULT '',
			website          TEXT        NOT NULL DEFAULT '',
			pricing_model    VARCHAR(64) NOT NULL DEFAULT '',
			source           VARCHAR(64) NOT NULL,
			source_url       TEXT        NOT NULL,
			confidence_score NUMERIC(3,2) NOT NULL DEFAULT 0,
			review_count     INT         NOT NULL DEFAULT 0,
			average_rating   NUMERIC(4,2) NOT NULL DEFAULT 0,
			sentiment        JSONB       NOT NULL DEFAULT '{}',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (job_id, source, source_url)
		);

		CREATE TABLE IF NOT EXISTS feedback (
			id              SERIAL PRIMARY KEY,
			job_id          VARCHAR(64) NOT NULL REFERENCES validation_jobs(job_id),
			text            TEXT        NOT NULL,
			sentiment       VARCHAR(16) NOT NULL DEFAULT 'neutral',
			sentiment_score NUMERIC(6,4) NOT NULL DEFAULT 0,
			source          VARCHAR(64) NOT NULL,
			source_url      TEXT        NOT NULL,
			author_info     JSONB       NOT NULL DEFAULT '{}',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS run_metadata (
			job_id       VARCHAR(64) PRIMARY KEY REFERENCES validation_jobs(job_id),
			metadata     JSONB       NOT NULL DEFAULT '{}',
			completed_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_competitors_job ON competitors(job_id);
		CREATE INDEX IF NOT EXISTS idx_feedback_job    ON feedback(job_id);
		CREATE INDEX IF NOT EXISTS idx_jobs_status     ON validation_jobs(status);
	`)
	return err
}

// CreateJob registers a new validation job in the processing state.
func (ps *PostgresStore) CreateJob(jobID, ideaText string) error {
	_, err := ps.db.Exec(`
		INSERT INTO validation_jobs (job_id, idea_text, status)
		VALUES ($1, $2, 'processing')
		ON CONFLICT (job_id) DO NOTHING
	`, jobID, ideaText)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	return nil
}

// UpdateStatus implements Store.
func (ps *PostgresStore) UpdateStatus(jobID, status string, extra map[string]any) error {
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("postgres: marshal extra: %w", err)
	}

	_, err = ps.db.Exec(`
		UPDATE validation_jobs
		SET status = $2, extra = $3, updated_at = NOW()
		WHERE job_id = $1
	`, jobID, status, extraJSON)
	if err != nil {
		return fmt.Errorf("postgres: update status: %w", err)
	}
	return nil
}

// InsertCompetitors implements Store with batched inserts.
func (ps *PostgresStore) InsertCompetitors(jobID string, competitors []*models.CompetitorRecord) error {
	if len(competitors) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(competitors); i += batchSize {
		end := i + batchSize
		if end > len(competitors) {
			end = len(competitors)
		}
		if err := ps.insertCompetitorBatch(jobID, competitors[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertCompetitorBatch(jobID string, batch []*models.CompetitorRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*11)

	for idx, c := range batch {
		sentimentJSON := []byte("{}")
		if c.SentimentSummary != nil {
			if b, err := json.Marshal(c.SentimentSummary); err == nil {
				sentimentJSON = b
			}
		}

		base := idx * 11
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
				base+7, base+8, base+9, base+10, base+11))
		valueArgs = append(valueArgs,
			jobID, c.Name, c.Description, c.Website, c.PricingModel,
			c.Source, c.SourceURL, c.ConfidenceScore, c.ReviewCount,
			c.AverageRating, sentimentJSON)
	}

	query := fmt.Sprintf(`
		INSERT INTO competitors (job_id, name, description, website, pricing_model,
			source, source_url, confidence_score, review_count, average_rating, sentiment)
		VALUES %s
		ON CONFLICT (job_id, source, source_url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert competitors: %w", err)
	}
	return nil
}

// InsertFeedback implements Store with batched inserts.
func (ps *PostgresStore) InsertFeedback(jobID string, feedback []*models.FeedbackRecord) error {
	if len(feedback) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(feedback); i += batchSize {
		end := i + batchSize
		if end > len(feedback) {
			end = len(feedback)
		}
		if err := ps.insertFeedbackBatch(jobID, feedback[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertFeedbackBatch(jobID string, batch []*models.FeedbackRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*7)

	for idx, f := range batch {
		authorJSON := []byte("{}")
		if len(f.AuthorInfo) > 0 {
			if b, err := json.Marshal(f.AuthorInfo); err == nil {
				authorJSON = b
			}
		}

		base := idx * 7
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		valueArgs = append(valueArgs,
			jobID, f.Text, string(f.Sentiment), f.SentimentScore,
			f.Source, f.SourceURL, authorJSON)
	}

	query := fmt.Sprintf(`
		INSERT INTO feedback (job_id, text, sentiment, sentiment_score, source, source_url, author_info)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert feedback: %w", err)
	}
	return nil
}

// InsertMetadata implements Store. The metadata block is stored as a
// single JSONB document.
func (ps *PostgresStore) InsertMetadata(jobID string, meta *models.RunMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("postgres: marshal metadata: %w", err)
	}

	_, err = ps.db.Exec(`
		INSERT INTO run_metadata (job_id, metadata, completed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (job_id) DO UPDATE SET metadata = $2, completed_at = NOW()
	`, jobID, metaJSON)
	if err != nil {
		return fmt.Errorf("postgres: insert metadata: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
