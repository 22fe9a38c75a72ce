package routines

import (
	"context"
	"log"
	"time"

	"github.com/CorrelAid/sbv2_web/models"
	"github.com/hashicorp/go-memdb"
)

func StartCleanupRoutine(ctx context.Context, db *memdb.MemDB, every time.Duration) {
	CleanupExpired(db, time.Now())

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			CleanupExpired(db, now)
		}
	}
}

// CleanupExpired deletes every clip whose expiry is before now and returns
// how many were removed.
func CleanupExpired(db *memdb.MemDB, now time.Time) int {
	txn := db.Txn(true)
	defer txn.Abort()

	clipTable, err := txn.Get("clip", "id")
	if err != nil {
		log.Printf("Cleanup failed: %v", err)
		return 0
	}

	var expired []*models.Clip
	for obj := clipTable.Next(); obj != nil; obj = clipTable.Next() {
		clip := obj.(*models.Clip)
		expiryTime, err := time.Parse(time.RFC1123, clip.Expiry)
		if err != nil {
			log.Printf("Clip %s has unreadable expiry %q, dropping it", clip.ID, clip.Expiry)
			expired = append(expired, clip)
			continue
		}
		if expiryTime.Before(now) {
			expired = append(expired, clip)
		}
	}

	for _, clip := range expired {
		if err := txn.Delete("clip", clip); err != nil {
			log.Printf("Failed to delete clip %s: %v", clip.ID, err)
			return 0
		}
		log.Printf("Deleted expired clip: id=%s", clip.ID)
	}

	txn.Commit()
	return len(expired)
}
