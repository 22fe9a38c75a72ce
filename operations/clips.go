package operations

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/CorrelAid/sbv2_web/models"
	"github.com/hashicorp/go-memdb"
)

var ErrClipNotFound = errors.New("clip not found")

func InsertClip(db *memdb.MemDB, clip *models.Clip) error {
	txn := db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert("clip", clip); err != nil {
		return fmt.Errorf("insert clip %s: %w", clip.ID, err)
	}

	txn.Commit()

	log.Printf("Inserted clip: id=%s bytes=%d", clip.ID, len(clip.Audio))

	return nil
}

// GetClip returns the clip with the given id. Clips past their expiry are
// reported as missing even if the cleanup routine has not removed them yet.
func GetClip(db *memdb.MemDB, id string, now time.Time) (*models.Clip, error) {
	txn := db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First("clip", "id", id)
	if err != nil {
		return nil, fmt.Errorf("lookup clip %s: %w", id, err)
	}
	if obj == nil {
		return nil, ErrClipNotFound
	}

	clip := obj.(*models.Clip)
	expiry, err := time.Parse(time.RFC1123, clip.Expiry)
	if err != nil || expiry.Before(now) {
		return nil, ErrClipNotFound
	}
	return clip, nil
}
