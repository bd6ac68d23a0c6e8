package task_pack

import (
	"strconv"
	"strings"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/utils"
)

// TaskAnnouncement is the wire form of a freshly created task, broadcast to
// validators so they can start computing. The announcer signs the hash; a
// receiving validator acks by signing the same hash with its own key.
type TaskAnnouncement struct {
	Announcer         string   `json:"announcer"`
	Time              int64    `json:"time"`
	TaskIndex         uint64   `json:"taskIndex"`
	Kind              string   `json:"kind"`
	Payload           []byte   `json:"payload"`
	CreatedAt         int64    `json:"createdAt"`
	QuorumNumerator   uint64   `json:"quorumNumerator"`
	QuorumDenominator uint64   `json:"quorumDenominator"`
	QuorumIdentifiers []string `json:"quorumIdentifiers"`
	Sig               string   `json:"sig"`
}

func NewTaskAnnouncement(task engine.Task) *TaskAnnouncement {
	return &TaskAnnouncement{
		Announcer:         globals.CONFIGURATION.PublicKey,
		Time:              utils.GetUTCTimestampInMilliSeconds(),
		TaskIndex:         task.Index,
		Kind:              task.Kind,
		Payload:           task.Payload,
		CreatedAt:         task.CreatedAt,
		QuorumNumerator:   task.QuorumNumerator,
		QuorumDenominator: task.QuorumDenominator,
		QuorumIdentifiers: task.QuorumIdentifiers,
		Sig:               "",
	}
}

func (announcement *TaskAnnouncement) GetHash() string {

	dataToHash := strings.Join([]string{
		announcement.Announcer,
		strconv.FormatInt(announcement.Time, 10),
		globals.GENESIS.NetworkId,
		strconv.FormatUint(announcement.TaskIndex, 10),
		announcement.Kind,
		engine.CanonicalPayloadHash(announcement.Payload),
		strconv.FormatInt(announcement.CreatedAt, 10),
		strconv.FormatUint(announcement.QuorumNumerator, 10),
		strconv.FormatUint(announcement.QuorumDenominator, 10),
		strings.Join(announcement.QuorumIdentifiers, ","),
	}, ":")

	return utils.Blake3(dataToHash)
}

func (announcement *TaskAnnouncement) SignAnnouncement() {

	announcement.Sig = cryptography.GenerateSignature(globals.CONFIGURATION.PrivateKey, announcement.GetHash())

}

func (announcement *TaskAnnouncement) VerifySignature() bool {

	return cryptography.VerifySignature(announcement.GetHash(), announcement.Announcer, announcement.Sig)

}
