package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// nextFreeID returns the lowest unused id in the given table. User-facing
// entities (tasks, rewards, punishments) are addressed by number in commands,
// so ids are reallocated gap-filling to stay small after deletions. The
// self-join on id+1 walks the primary key index instead of scanning rows.
func nextFreeID(tx *gorm.DB, table string) (uint, error) {
	var free *uint
	query := fmt.Sprintf(`
		SELECT MIN(t.id + 1)
		FROM %s t
		LEFT JOIN %s n ON n.id = t.id + 1
		WHERE n.id IS NULL`, table, table)
	if err := tx.Raw(query).Scan(&free).Error; err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	if free == nil {
		// Empty table.
		return 1, nil
	}

	// Id 1 itself may be free after a deletion; the self-join only finds
	// gaps above an existing row.
	var count int64
	if err := tx.Table(table).Where("id = 1").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	if count == 0 {
		return 1, nil
	}
	return *free, nil
}
