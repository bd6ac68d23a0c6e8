package utils

import (
	"encoding/json"

	"github.com/stakequorum/stakequorum-core/databases"
)

const validatorHealthPrefix = "VALIDATOR_HEALTH:"

// ValidatorHealthStatus stores metadata about why announcements to a
// validator endpoint were paused.
type ValidatorHealthStatus struct {
	Validator  string `json:"validator"`
	DisabledAt int64  `json:"disabledAt"`
	Reason     string `json:"reason"`
}

func buildValidatorHealthKey(validatorId string) []byte {
	return []byte(validatorHealthPrefix + validatorId)
}

// MarkValidatorUnreachable stores a persistent flag so the announcement
// thread skips the endpoint instead of burning a dial on it every round.
func MarkValidatorUnreachable(validatorId, reason string) error {
	status := ValidatorHealthStatus{
		Validator:  validatorId,
		DisabledAt: GetUTCTimestampInMilliSeconds(),
		Reason:     reason,
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return databases.REGISTRY_STATE.Put(buildValidatorHealthKey(validatorId), payload, nil)
}

// ClearValidatorUnreachable removes the flag after the validator answered
// again (an ack or a submitted response both count).
func ClearValidatorUnreachable(validatorId string) {
	_ = databases.REGISTRY_STATE.Delete(buildValidatorHealthKey(validatorId), nil)
}

func IsValidatorMarkedUnreachable(validatorId string) bool {
	if _, err := databases.REGISTRY_STATE.Get(buildValidatorHealthKey(validatorId), nil); err == nil {
		return true
	}
	return false
}
