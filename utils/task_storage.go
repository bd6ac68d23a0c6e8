package utils

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"

	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const taskPrefix = "TASK:"

const nextTaskIndexKey = "NEXT_TASK_INDEX"

func taskKey(taskIndex uint64) []byte {
	return []byte(taskPrefix + strconv.FormatUint(taskIndex, 10))
}

// StoreTask persists the full task record. It is called on creation and on
// every status flip, so the stored copy always mirrors the in-memory one.
func StoreTask(task engine.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return databases.TASKS.Put(taskKey(task.Index), payload, nil)
}

func LoadAllTasks() ([]engine.Task, error) {

	iter := databases.TASKS.NewIterator(util.BytesPrefix([]byte(taskPrefix)), nil)
	defer iter.Release()

	var tasks []engine.Task

	for iter.Next() {
		var task engine.Task
		if err := json.Unmarshal(iter.Value(), &task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, iter.Error()
}

func StoreNextTaskIndex(nextTaskIndex uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, nextTaskIndex)
	return databases.TASKS.Put([]byte(nextTaskIndexKey), value, nil)
}

func LoadNextTaskIndex() (uint64, error) {
	raw, err := databases.TASKS.Get([]byte(nextTaskIndexKey), nil)
	if err != nil {
		if errors.Is(err, ldbErrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, errors.New("malformed next task index record")
	}
	return binary.BigEndian.Uint64(raw), nil
}
