package threads

import (
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
)

var registryGaugeKick = make(chan struct{}, 1)

// KickRegistryGaugeRefresh wakes the gauge refresher without blocking. The
// engine event sink calls it while still holding the engine write lock, so
// the actual engine reads have to happen on another goroutine.
func KickRegistryGaugeRefresh() {

	select {

	case registryGaugeKick <- struct{}{}:

	default:

	}

}

// RegistryGaugeRefreshThread keeps the registry gauges aligned with the
// engine. Deregistration zeroes the stake before the event reaches the sink,
// so the gauges are re-read as absolute values instead of patched from event
// payloads. Bursts of registry events coalesce into a single refresh.
func RegistryGaugeRefreshThread() {

	for range registryGaugeKick {

		metrics_pack.ACTIVE_VALIDATORS.Set(float64(handlers.CONSENSUS_ENGINE.ActiveValidatorCount()))

		metrics_pack.TOTAL_ACTIVE_STAKE.Set(float64(handlers.CONSENSUS_ENGINE.TotalActiveStake()))

	}

}
