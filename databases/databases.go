package databases

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

var TASKS, RESPONSES, RESULTS, REGISTRY_STATE *leveldb.DB

// CloseAll safely closes all initialized LevelDB instances
func CloseAll() error {

	type namedDB struct {
		name string
		db   **leveldb.DB
	}

	databases := []namedDB{
		{name: "TASKS", db: &TASKS},
		{name: "RESPONSES", db: &RESPONSES},
		{name: "RESULTS", db: &RESULTS},
		{name: "REGISTRY_STATE", db: &REGISTRY_STATE},
	}

	var errs []error
	for _, database := range databases {
		if database.db == nil || *database.db == nil {
			continue
		}

		if err := (*database.db).Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", database.name, err))
		}

	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
