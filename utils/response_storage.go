package utils

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"

	"github.com/syndtr/goleveldb/leveldb/util"
)

const responsePrefix = "RESPONSE:"

func responseKey(taskIndex uint64, validatorId string) []byte {
	return []byte(responsePrefix + strconv.FormatUint(taskIndex, 10) + ":" + validatorId)
}

func responseTaskPrefix(taskIndex uint64) []byte {
	return []byte(responsePrefix + strconv.FormatUint(taskIndex, 10) + ":")
}

func StoreResponse(response engine.Response) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return databases.RESPONSES.Put(responseKey(response.TaskIndex, response.Validator), payload, nil)
}

// LoadResponsesForTask returns the stored responses for one task ordered by
// arrival sequence, the same order the aggregator saw them live.
func LoadResponsesForTask(taskIndex uint64) ([]engine.Response, error) {

	iter := databases.RESPONSES.NewIterator(util.BytesPrefix(responseTaskPrefix(taskIndex)), nil)
	defer iter.Release()

	var responses []engine.Response

	for iter.Next() {
		var response engine.Response
		if err := json.Unmarshal(iter.Value(), &response); err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(responses, func(i, j int) bool { return responses[i].Seq < responses[j].Seq })

	return responses, nil
}

func LoadAllResponses() ([]engine.Response, error) {

	iter := databases.RESPONSES.NewIterator(util.BytesPrefix([]byte(responsePrefix)), nil)
	defer iter.Release()

	var responses []engine.Response

	for iter.Next() {
		var response engine.Response
		if err := json.Unmarshal(iter.Value(), &response); err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	return responses, iter.Error()
}
