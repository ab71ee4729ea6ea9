// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

const maxIDRetries = 20

// GenerateID draws a random positive 64-bit id and verifies it is unused in
// the given table, retrying on collision. Random ids keep the external
// base-62 encoding opaque; collisions are vanishingly rare so the retry loop
// almost always runs once.
func GenerateID(ctx context.Context, db *gorm.DB, table string) (models.ID, error) {
	for i := 0; i < maxIDRetries; i++ {
		candidate := randomID()
		var count int64
		if err := db.WithContext(ctx).Table(table).Where("id = ?", int64(candidate)).Count(&count).Error; err != nil {
			return 0, models.NewInternalError(err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return 0, models.NewInternalError(fmt.Errorf("exhausted %d attempts generating an id for %s", maxIDRetries, table))
}

func randomID() models.ID {
	var buf [8]byte
	_, _ = crand.Read(buf[:])
	n := binary.BigEndian.Uint64(buf[:]) &^ (1 << 63)
	if n == 0 {
		n = 1
	}
	return models.ID(n)
}
