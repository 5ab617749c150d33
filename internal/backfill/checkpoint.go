package backfill

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corpintel/edgargraph/internal/errors"
)

const completedBucket = "completed_companies"

// Checkpoint records which companies a backfill job has finished, so a
// restarted job skips them instead of re-scanning.
type Checkpoint struct {
	db *bolt.DB
}

// OpenCheckpoint opens (or creates) the checkpoint database at path.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Storef(err, "open checkpoint db %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(completedBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Storef(err, "init checkpoint bucket")
	}
	return &Checkpoint{db: db}, nil
}

func (c *Checkpoint) Close() error {
	return c.db.Close()
}

// MarkDone records a company as completed.
func (c *Checkpoint) MarkDone(cik string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(completedBucket))
		return bucket.Put([]byte(cik), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return errors.Storef(err, "checkpoint %s", cik)
	}
	return nil
}

// IsDone reports whether a company was completed by an earlier run.
func (c *Checkpoint) IsDone(cik string) (bool, error) {
	var done bool
	err := c.db.View(func(tx *bolt.Tx) error {
		done = tx.Bucket([]byte(completedBucket)).Get([]byte(cik)) != nil
		return nil
	})
	if err != nil {
		return false, errors.Storef(err, "read checkpoint %s", cik)
	}
	return done, nil
}

// Completed returns the CIKs finished so far, in key order.
func (c *Checkpoint) Completed() ([]string, error) {
	var ciks []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(completedBucket)).ForEach(func(k, _ []byte) error {
			ciks = append(ciks, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Storef(err, "list checkpoints")
	}
	return ciks, nil
}

// Reset clears all checkpoints, forcing the next run to start from
// scratch.
func (c *Checkpoint) Reset() error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(completedBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(completedBucket))
		return err
	})
	if err != nil {
		return errors.Storef(err, "reset checkpoints")
	}
	return nil
}
