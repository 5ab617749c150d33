package review

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

// Status of a queued item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusModified Status = "modified" // approved with corrections
)

const maxRawTextLen = 100_000

// Item is one extraction awaiting human review.
type Item struct {
	ID            int64
	Key           string
	Candidate     models.Candidate
	FailureReason string
	Confidence    float64
	Status        Status
	CreatedAt     time.Time
	ReviewedAt    time.Time // zero until reviewed
	ReviewedBy    string
}

// Queue is a SQLite-backed review queue for low-confidence or failed
// extractions. Enqueue is idempotent on the candidate key, so retried
// pipeline runs do not pile up duplicate items.
type Queue struct {
	db  *sql.DB
	log *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS review_queue (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    candidate_key    TEXT NOT NULL UNIQUE,
    filing_accession TEXT NOT NULL,
    filing_type      TEXT NOT NULL,
    company_cik      TEXT NOT NULL,
    company_name     TEXT,
    extraction_type  TEXT NOT NULL,
    raw_text         TEXT NOT NULL,
    candidate        TEXT NOT NULL,
    failure_reason   TEXT,
    confidence       REAL,
    status           TEXT NOT NULL DEFAULT 'pending',
    created_at       TEXT NOT NULL,
    reviewed_at      TEXT,
    reviewed_by      TEXT
);
CREATE INDEX IF NOT EXISTS idx_review_status  ON review_queue(status);
CREATE INDEX IF NOT EXISTS idx_review_company ON review_queue(company_cik);
CREATE INDEX IF NOT EXISTS idx_review_filing  ON review_queue(filing_accession);
`

// Open opens (creating if needed) the review queue database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, "open review queue")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CategoryStore, "initialize review queue schema")
	}
	return &Queue{db: db, log: logging.Component("review")}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue adds a candidate for review. A candidate with the same key that
// is still pending is updated in place when the new confidence is equal
// or higher; lower-confidence resubmissions and already-reviewed keys are
// discarded. Returns the item id and whether the row was written.
func (q *Queue) Enqueue(c models.Candidate, reason string) (int64, bool, error) {
	if err := c.Validate(); err != nil {
		return 0, false, errors.Wrap(err, errors.CategoryMalformed, "invalid review candidate")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return 0, false, errors.Wrap(err, errors.CategoryInternal, "marshal candidate")
	}
	rawText := c.Citation.RawText
	if len(rawText) > maxRawTextLen {
		rawText = rawText[:maxRawTextLen]
	}

	tx, err := q.db.Begin()
	if err != nil {
		return 0, false, errors.Wrap(err, errors.CategoryStore, "begin enqueue")
	}
	defer tx.Rollback()

	key := c.Key()
	var existingID int64
	var existingStatus Status
	var existingConfidence float64
	err = tx.QueryRow(
		`SELECT id, status, confidence FROM review_queue WHERE candidate_key = ?`, key,
	).Scan(&existingID, &existingStatus, &existingConfidence)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(`
			INSERT INTO review_queue (
				candidate_key, filing_accession, filing_type, company_cik,
				company_name, extraction_type, raw_text, candidate,
				failure_reason, confidence, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key,
			c.Citation.Filing.AccessionNumber,
			c.Citation.Filing.FormType,
			c.SubjectCIK,
			c.SubjectName,
			string(c.Kind),
			rawText,
			string(payload),
			reason,
			c.Confidence,
			string(StatusPending),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, false, errors.Wrap(err, errors.CategoryStore, "insert review item")
		}
		id, _ := res.LastInsertId()
		if err := tx.Commit(); err != nil {
			return 0, false, errors.Wrap(err, errors.CategoryStore, "commit enqueue")
		}
		q.log.Debug("review item queued", "id", id, "kind", c.Kind, "key", key)
		return id, true, nil

	case err != nil:
		return 0, false, errors.Wrap(err, errors.CategoryStore, "lookup review item")

	case existingStatus != StatusPending:
		// Already reviewed; the decision stands.
		return existingID, false, nil

	case c.Confidence < existingConfidence:
		return existingID, false, nil

	default:
		_, err := tx.Exec(`
			UPDATE review_queue
			SET candidate = ?, confidence = ?, raw_text = ?, failure_reason = ?
			WHERE id = ?`,
			string(payload), c.Confidence, rawText, reason, existingID)
		if err != nil {
			return 0, false, errors.Wrap(err, errors.CategoryStore, "update review item")
		}
		if err := tx.Commit(); err != nil {
			return 0, false, errors.Wrap(err, errors.CategoryStore, "commit enqueue")
		}
		return existingID, true, nil
	}
}

// Pending returns unreviewed items, newest first.
func (q *Queue) Pending(limit int) ([]Item, error) {
	return q.query(`
		SELECT id, candidate_key, candidate, failure_reason, confidence,
		       status, created_at, reviewed_at, reviewed_by
		FROM review_queue
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, string(StatusPending), limit)
}

// ByCompany returns items for one company, newest first, any status.
func (q *Queue) ByCompany(cik string, limit int) ([]Item, error) {
	return q.query(`
		SELECT id, candidate_key, candidate, failure_reason, confidence,
		       status, created_at, reviewed_at, reviewed_by
		FROM review_queue
		WHERE company_cik = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, cik, limit)
}

// Get returns one item by id.
func (q *Queue) Get(id int64) (*Item, error) {
	items, err := q.query(`
		SELECT id, candidate_key, candidate, failure_reason, confidence,
		       status, created_at, reviewed_at, reviewed_by
		FROM review_queue
		WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Malformedf("review item %d not found", id)
	}
	return &items[0], nil
}

// Approve marks a pending item approved and returns its candidate for
// loading. The status guard on the UPDATE makes approval exactly-once:
// a second approve of the same item fails instead of loading twice.
func (q *Queue) Approve(id int64, reviewedBy string) (*models.Candidate, error) {
	return q.resolve(id, reviewedBy, StatusApproved, nil)
}

// ApproveWithCorrection approves an item with a corrected candidate that
// replaces the extracted one.
func (q *Queue) ApproveWithCorrection(id int64, reviewedBy string, corrected models.Candidate) (*models.Candidate, error) {
	if err := corrected.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryMalformed, "invalid corrected candidate")
	}
	return q.resolve(id, reviewedBy, StatusModified, &corrected)
}

// Reject marks a pending item rejected. Terminal, nothing is loaded.
func (q *Queue) Reject(id int64, reviewedBy string) error {
	_, err := q.resolve(id, reviewedBy, StatusRejected, nil)
	return err
}

func (q *Queue) resolve(id int64, reviewedBy string, status Status, corrected *models.Candidate) (*models.Candidate, error) {
	item, err := q.Get(id)
	if err != nil {
		return nil, err
	}

	candidate := item.Candidate
	if corrected != nil {
		candidate = *corrected
	}
	payload, err := json.Marshal(candidate)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "marshal candidate")
	}

	res, err := q.db.Exec(`
		UPDATE review_queue
		SET status = ?, candidate = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ? AND status = ?`,
		string(status), string(payload),
		time.Now().UTC().Format(time.RFC3339), reviewedBy,
		id, string(StatusPending))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, "update review status")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, errors.Conflictf("review item %d is not pending (current status %s)", id, item.Status)
	}

	q.log.Info("review item resolved", "id", id, "status", status, "reviewed_by", reviewedBy)
	if status == StatusRejected {
		return nil, nil
	}
	return &candidate, nil
}

// Stats returns item counts per status plus a "total".
func (q *Queue) Stats() (map[string]int, error) {
	rows, err := q.db.Query(`SELECT status, COUNT(*) FROM review_queue GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, "query review stats")
	}
	defer rows.Close()

	stats := make(map[string]int)
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, "scan review stats")
		}
		stats[status] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, "iterate review stats")
	}
	stats["total"] = total
	return stats, nil
}

func (q *Queue) query(sqlText string, args ...any) ([]Item, error) {
	rows, err := q.db.Query(sqlText, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, "query review queue")
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			payload    string
			status     string
			createdAt  string
			reviewedAt sql.NullString
			reviewedBy sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Key, &payload, &item.FailureReason,
			&item.Confidence, &status, &createdAt, &reviewedAt, &reviewedBy); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, "scan review item")
		}
		if err := json.Unmarshal([]byte(payload), &item.Candidate); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, "decode stored candidate")
		}
		item.Status = Status(status)
		item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if reviewedAt.Valid {
			item.ReviewedAt, _ = time.Parse(time.RFC3339, reviewedAt.String)
		}
		item.ReviewedBy = reviewedBy.String
		items = append(items, item)
	}
	return items, rows.Err()
}
