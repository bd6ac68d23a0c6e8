package globals

import (
	"testing"

	"github.com/stakequorum/stakequorum-core/engine"

	"github.com/stretchr/testify/require"
)

func TestAnnouncementMempoolOrdersByTaskIndex(t *testing.T) {

	mempool := AnnouncementMempool{tasks: make(map[uint64]engine.Task)}

	require.Nil(t, mempool.List())

	for _, index := range []uint64{7, 0, 3} {
		mempool.Add(engine.Task{Index: index, Kind: "PRICE_FEED"})
	}

	tasks := mempool.List()

	require.Len(t, tasks, 3)
	require.EqualValues(t, 0, tasks[0].Index)
	require.EqualValues(t, 3, tasks[1].Index)
	require.EqualValues(t, 7, tasks[2].Index)
}

func TestAnnouncementMempoolAddOverwritesAndDeleteRemoves(t *testing.T) {

	mempool := AnnouncementMempool{tasks: make(map[uint64]engine.Task)}

	mempool.Add(engine.Task{Index: 5, Kind: "PRICE_FEED"})
	mempool.Add(engine.Task{Index: 5, Kind: "RANDOMNESS"})

	tasks := mempool.List()

	require.Len(t, tasks, 1)
	require.Equal(t, "RANDOMNESS", tasks[0].Kind)

	mempool.Delete(5)

	require.Nil(t, mempool.List())

	// Deleting an index that was never added is a no-op
	mempool.Delete(42)
}
