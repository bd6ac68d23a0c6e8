package threads

import (
	"time"

	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/websocket_pack"
)

// ResultOutboxThread retries persisted result events until subscribers
// acknowledged receipt by accepting the write.
func ResultOutboxThread() {

	intervalMs := globals.GENESIS.EngineParameters.ResultOutboxIntervalMs

	if intervalMs <= 0 {
		intervalMs = 1000
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		_ = websocket_pack.FlushResultOutboxOnce(globals.GENESIS.EngineParameters.ResultOutboxFlushLimit)
	}
}
