package dao

import (
	"gorm.io/gorm"
)

const (
	SequenceRaffles = "raffles"
	SequenceUsers   = "users"
)

// Sequence holds the last value handed out for one collection. Values only grow, so a
// deleted record never gives its number back.
type Sequence struct {
	Name  string `gorm:"primaryKey;type:varchar(32)"`
	Value int64  `gorm:"not null"`
}

// nextSequence increments the counter in a single statement. Running it on the creating
// transaction means a rolled back creation does not consume a value.
func nextSequence(tx *gorm.DB, name string) (int64, error) {
	var value int64
	err := tx.Raw(`INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name).Scan(&value).Error
	if err != nil {
		return 0, err
	}

	return value, nil
}
