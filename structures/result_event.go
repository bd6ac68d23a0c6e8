package structures

import (
	"encoding/json"

	"github.com/stakequorum/stakequorum-core/engine"
)

// ResultEvent is the unit the result outbox persists and later fans out to
// websocket subscribers. One task produces at most two of them over its
// lifetime: the terminal finalize/fail event and, possibly, a challenge.
type ResultEvent struct {
	Kind       string                   `json:"kind"`
	TaskIndex  uint64                   `json:"taskIndex"`
	TaskKind   string                   `json:"taskKind"`
	Result     *engine.AggregatedResult `json:"result,omitempty"`
	Payload    json.RawMessage          `json:"payload,omitempty"`
	Challenge  *engine.ChallengeRecord  `json:"challenge,omitempty"`
	OccurredAt int64                    `json:"occurredAt"`
}
