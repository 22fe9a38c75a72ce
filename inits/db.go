package inits

import (
	"context"
	"time"

	"github.com/CorrelAid/sbv2_web/routines"
	"github.com/hashicorp/go-memdb"
)

var DB *memdb.MemDB

func NewDB() (*memdb.MemDB, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"clip": {
				Name: "clip",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:         "id",
						Unique:       true,
						Indexer:      &memdb.StringFieldIndex{Field: "ID"},
						AllowMissing: false,
					},
					"expiry": {
						Name:         "expiry",
						Unique:       false,
						Indexer:      &memdb.StringFieldIndex{Field: "Expiry"},
						AllowMissing: false,
					},
				},
			},
		},
	}

	return memdb.NewMemDB(schema)
}

// DBInit creates the clip store and starts expiring old clips until ctx is
// done.
func DBInit(ctx context.Context, cleanupEvery time.Duration) {
	db, err := NewDB()
	if err != nil {
		panic(err)
	}
	go routines.StartCleanupRoutine(ctx, db, cleanupEvery)
	DB = db
}
