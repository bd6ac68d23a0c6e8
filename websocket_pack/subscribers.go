package websocket_pack

import (
	"encoding/json"
	"sync"

	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/lxzan/gws"
)

// Registry of connections that asked for result events. Connections drop out
// on close or on the first failed write.

var RESULTS_SUBSCRIBERS = struct {
	sync.RWMutex
	conns map[*gws.Conn]struct{}
}{conns: make(map[*gws.Conn]struct{})}

func SubscribeResults(connection *gws.Conn) {

	if !globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Load() {
		return
	}

	RESULTS_SUBSCRIBERS.Lock()

	RESULTS_SUBSCRIBERS.conns[connection] = struct{}{}

	RESULTS_SUBSCRIBERS.Unlock()

	reply := WsSubscribeResultsReply{Status: "SUBSCRIBED"}

	if jsonResponse, err := json.Marshal(reply); err == nil {
		connection.WriteMessage(gws.OpcodeText, jsonResponse)
	}

}

func RemoveResultsSubscriber(connection *gws.Conn) {

	RESULTS_SUBSCRIBERS.Lock()

	delete(RESULTS_SUBSCRIBERS.conns, connection)

	RESULTS_SUBSCRIBERS.Unlock()

}

func CountResultsSubscribers() int {

	RESULTS_SUBSCRIBERS.RLock()
	defer RESULTS_SUBSCRIBERS.RUnlock()

	return len(RESULTS_SUBSCRIBERS.conns)

}

// BroadcastResultEvent pushes one event to every subscriber and returns how
// many writes succeeded. Connections that fail the write are dropped.
func BroadcastResultEvent(event structures.ResultEvent) int {

	message, err := json.Marshal(event)

	if err != nil {
		return 0
	}

	RESULTS_SUBSCRIBERS.RLock()

	targets := make([]*gws.Conn, 0, len(RESULTS_SUBSCRIBERS.conns))

	for connection := range RESULTS_SUBSCRIBERS.conns {
		targets = append(targets, connection)
	}

	RESULTS_SUBSCRIBERS.RUnlock()

	delivered := 0

	for _, connection := range targets {

		if err := connection.WriteMessage(gws.OpcodeText, message); err != nil {

			RemoveResultsSubscriber(connection)

			continue

		}

		delivered++

	}

	return delivered

}
