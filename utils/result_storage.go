package utils

import (
	"encoding/json"
	"strconv"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/syndtr/goleveldb/leveldb/util"
)

const aggregatedResultPrefix = "AGGREGATED_RESULT:"

const challengePrefix = "CHALLENGE:"

const resultOutboxPrefix = "RESULT_OUTBOX:"

func aggregatedResultKey(taskIndex uint64) []byte {
	return []byte(aggregatedResultPrefix + strconv.FormatUint(taskIndex, 10))
}

func challengeKey(taskIndex uint64) []byte {
	return []byte(challengePrefix + strconv.FormatUint(taskIndex, 10))
}

func resultOutboxKey(taskIndex uint64, eventKind string) []byte {
	return []byte(resultOutboxPrefix + strconv.FormatUint(taskIndex, 10) + ":" + eventKind)
}

func StoreAggregatedResult(result engine.AggregatedResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return databases.RESULTS.Put(aggregatedResultKey(result.TaskIndex), payload, nil)
}

func LoadAllAggregatedResults() ([]engine.AggregatedResult, error) {

	iter := databases.RESULTS.NewIterator(util.BytesPrefix([]byte(aggregatedResultPrefix)), nil)
	defer iter.Release()

	var results []engine.AggregatedResult

	for iter.Next() {
		var result engine.AggregatedResult
		if err := json.Unmarshal(iter.Value(), &result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, iter.Error()
}

func StoreChallengeRecord(record engine.ChallengeRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return databases.RESULTS.Put(challengeKey(record.TaskIndex), payload, nil)
}

func LoadAllChallengeRecords() ([]engine.ChallengeRecord, error) {

	iter := databases.RESULTS.NewIterator(util.BytesPrefix([]byte(challengePrefix)), nil)
	defer iter.Release()

	var records []engine.ChallengeRecord

	for iter.Next() {
		var record engine.ChallengeRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, iter.Error()
}

//_______________________________ RESULT OUTBOX _______________________________

// The outbox keeps result events on disk until the delivery thread flushed
// them to subscribers. Keys are taskIndex:kind, so re-pushing the same event
// after a crash overwrites instead of duplicating.

func PushResultEvent(event structures.ResultEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return databases.RESULTS.Put(resultOutboxKey(event.TaskIndex, event.Kind), payload, nil)
}

type ResultOutboxEntry struct {
	Key   []byte
	Event structures.ResultEvent
}

// LoadResultOutboxBatch returns up to limit undelivered events.
func LoadResultOutboxBatch(limit int) ([]ResultOutboxEntry, error) {

	iter := databases.RESULTS.NewIterator(util.BytesPrefix([]byte(resultOutboxPrefix)), nil)
	defer iter.Release()

	var entries []ResultOutboxEntry

	for iter.Next() {

		if limit > 0 && len(entries) >= limit {
			break
		}

		var event structures.ResultEvent

		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			return nil, err
		}

		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())

		entries = append(entries, ResultOutboxEntry{Key: key, Event: event})
	}

	return entries, iter.Error()
}

func DeleteResultOutboxEntry(key []byte) error {
	return databases.RESULTS.Delete(key, nil)
}
