package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&Sequence{},
		&User{},
		&Raffle{},
		&RaffleStatusChange{},
		&Quota{},
		&Reservation{},
		&Participation{},
	)
}

// dropAllTables is used by the integration tests to start from an empty schema.
func dropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(
		&Participation{},
		&Reservation{},
		&Quota{},
		&RaffleStatusChange{},
		&Raffle{},
		&User{},
		&Sequence{},
	)
}
