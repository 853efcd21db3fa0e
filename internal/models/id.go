package models

import "github.com/google/uuid"

// assignID fills an empty primary key. IDs are generated in the
// application so the same models work on Postgres and SQLite.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
