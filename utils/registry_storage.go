package utils

import (
	"encoding/json"
	"errors"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/structures"

	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const validatorPrefix = "VALIDATOR:"

const engineParametersKey = "ENGINE_PARAMETERS"

func validatorKey(validatorId string) []byte {
	return []byte(validatorPrefix + validatorId)
}

func StoreValidatorRecord(validator engine.Validator) error {
	payload, err := json.Marshal(validator)
	if err != nil {
		return err
	}
	return databases.REGISTRY_STATE.Put(validatorKey(validator.Id), payload, nil)
}

func LoadAllValidatorRecords() ([]engine.Validator, error) {

	iter := databases.REGISTRY_STATE.NewIterator(util.BytesPrefix([]byte(validatorPrefix)), nil)
	defer iter.Release()

	var validators []engine.Validator

	for iter.Next() {
		var validator engine.Validator
		if err := json.Unmarshal(iter.Value(), &validator); err != nil {
			return nil, err
		}
		validators = append(validators, validator)
	}

	return validators, iter.Error()
}

// StoreEngineParameters pins the network parameters the engine was started
// with. Its presence is also the restore-vs-genesis marker at boot.
func StoreEngineParameters(params structures.EngineParameters) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return databases.REGISTRY_STATE.Put([]byte(engineParametersKey), payload, nil)
}

func LoadEngineParameters() (structures.EngineParameters, bool, error) {

	var params structures.EngineParameters

	raw, err := databases.REGISTRY_STATE.Get([]byte(engineParametersKey), nil)

	if err != nil {
		if errors.Is(err, ldbErrors.ErrNotFound) {
			return params, false, nil
		}
		return params, false, err
	}

	if err := json.Unmarshal(raw, &params); err != nil {
		return params, false, err
	}

	return params, true, nil
}
