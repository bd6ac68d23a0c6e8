package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"

	"github.com/gorilla/websocket"
)

// StakeWaiter broadcasts one message to a set of validators and waits until
// the validators that replied hold a quorum share of stake. It is the
// delivery engine of the task announcement thread: replies are collected by
// weight, not by head count.
type StakeWaiter struct {
	responseCh chan stakeResponse
	answered   map[string]struct{}
	responses  map[string][]byte
	timer      *time.Timer
	mu         sync.Mutex
	buf        []string
	failed     map[string]struct{}
	lastFailed []string
}

type stakeResponse struct {
	id  string
	msg []byte
}

// Protects concurrent access to wsConnMap (map[string]*websocket.Conn)
var WEBSOCKET_CONNECTION_MUTEX sync.RWMutex

// Ensures single writer per websocket connection (gorilla/websocket requirement)
var WEBSOCKET_WRITE_MUTEX sync.Map // key: pubkey -> *sync.Mutex

func OpenWebsocketConnectionsWithValidators(validatorIds []string, wsConnMap map[string]*websocket.Conn) {
	// Close and remove any existing connections
	WEBSOCKET_CONNECTION_MUTEX.Lock()
	for id, conn := range wsConnMap {
		if conn != nil {
			_ = conn.Close()
		}
		delete(wsConnMap, id)
	}
	WEBSOCKET_CONNECTION_MUTEX.Unlock()

	// Establish new connections for each validator in the target set
	for _, validatorId := range validatorIds {
		// Fetch validator metadata
		raw, err := databases.REGISTRY_STATE.Get([]byte("VALIDATOR:"+validatorId), nil)
		if err != nil {
			continue
		}

		// Parse metadata
		var validator engine.Validator
		if err := json.Unmarshal(raw, &validator); err != nil {
			continue
		}

		// Skip if no WS URL
		if validator.WssValidatorUrl == "" {
			continue
		}

		// Dial
		conn, _, err := websocket.DefaultDialer.Dial(validator.WssValidatorUrl, nil)
		if err != nil {
			continue
		}

		// Store in the shared map under lock
		WEBSOCKET_CONNECTION_MUTEX.Lock()
		wsConnMap[validatorId] = conn
		WEBSOCKET_CONNECTION_MUTEX.Unlock()
	}
}

func NewStakeWaiter(maxTargets int) *StakeWaiter {
	return &StakeWaiter{
		responseCh: make(chan stakeResponse, maxTargets),
		answered:   make(map[string]struct{}, maxTargets),
		responses:  make(map[string][]byte, maxTargets),
		timer:      time.NewTimer(0),
		buf:        make([]string, 0, maxTargets),
		failed:     make(map[string]struct{}),
	}
}

// SendAndWait delivers message to every target and keeps resending to silent
// ones until the answered set holds quorumNumerator/quorumDenominator of
// totalStake. Weights come from stakeOf; targets missing there count as zero.
// startingStake seeds the tally with stake that already acked in earlier
// rounds, so such validators must not be in targets again. On timeout the
// partial response set is returned with ok=false, letting the caller bank
// whatever arrived.
func (sw *StakeWaiter) SendAndWait(
	ctx context.Context, message []byte, targets []string,
	wsConnMap map[string]*websocket.Conn, stakeOf map[string]uint64,
	startingStake uint64, totalStake uint64, quorumNumerator uint64, quorumDenominator uint64,
) (map[string][]byte, bool) {

	// Reset state
	sw.mu.Lock()
	for k := range sw.answered {
		delete(sw.answered, k)
	}
	for k := range sw.responses {
		delete(sw.responses, k)
	}
	for k := range sw.failed {
		delete(sw.failed, k)
	}
	sw.buf = sw.buf[:0]
	sw.mu.Unlock()

	// Drop replies a previous round left buffered. Their senders held the old
	// done channel, so they may have parked responses here after that round
	// returned.
	for drained := false; !drained; {
		select {
		case <-sw.responseCh:
		default:
			drained = true
		}
	}

	// Arm/Reset timer
	if !sw.timer.Stop() {
		select {
		case <-sw.timer.C:
		default:
		}
	}
	sw.timer.Reset(time.Second)

	// Per round done channel, handed to the sender goroutines by value so
	// stragglers from an earlier round cannot leak into this one.
	done := make(chan struct{})

	answeredStake := startingStake

	// First send to the whole target set
	sw.sendMessages(targets, message, wsConnMap, done)

	for {
		select {
		case r := <-sw.responseCh:
			sw.mu.Lock()
			if _, ok := sw.answered[r.id]; !ok {
				sw.answered[r.id] = struct{}{}
				sw.responses[r.id] = r.msg
				answeredStake += stakeOf[r.id]
			}
			sw.mu.Unlock()

			if engine.QuorumReached(answeredStake, totalStake, quorumNumerator, quorumDenominator) {
				close(done)

				out := sw.snapshotResponses()

				// one-shot reconnect of failed nodes
				sw.reconnectFailed(wsConnMap)
				return out, true
			}

		case <-sw.timer.C:
			// resend to unanswered
			sw.mu.Lock()
			sw.buf = sw.buf[:0]
			for _, id := range targets {
				if _, ok := sw.answered[id]; !ok {
					sw.buf = append(sw.buf, id)
				}
			}
			sw.mu.Unlock()

			if len(sw.buf) == 0 {
				// Everyone answered, yet the raw stake never crossed the
				// quorum line for this round.
				close(done)
				out := sw.snapshotResponses()
				sw.reconnectFailed(wsConnMap)
				return out, false
			}
			sw.timer.Reset(time.Second)
			sw.sendMessages(sw.buf, message, wsConnMap, done)

		case <-ctx.Done():
			close(done)
			out := sw.snapshotResponses()
			sw.reconnectFailed(wsConnMap)
			return out, false
		}
	}
}

func (sw *StakeWaiter) snapshotResponses() map[string][]byte {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	out := make(map[string][]byte, len(sw.responses))
	for k, v := range sw.responses {
		out[k] = v
	}
	return out
}

// LastFailed reports the targets whose connection failed during the previous
// SendAndWait call. The announcement thread feeds this into its per validator
// failure counters.
func (sw *StakeWaiter) LastFailed() []string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return append([]string(nil), sw.lastFailed...)
}

func getWriteMu(id string) *sync.Mutex {
	if m, ok := WEBSOCKET_WRITE_MUTEX.Load(id); ok {
		return m.(*sync.Mutex)
	}
	m := &sync.Mutex{}
	actual, _ := WEBSOCKET_WRITE_MUTEX.LoadOrStore(id, m)
	return actual.(*sync.Mutex)
}

func reconnectOnce(validatorId string, wsConnMap map[string]*websocket.Conn) {

	// Get validator metadata
	raw, err := databases.REGISTRY_STATE.Get([]byte("VALIDATOR:"+validatorId), nil)
	if err != nil {
		return
	}
	var validator engine.Validator
	if err := json.Unmarshal(raw, &validator); err != nil || validator.WssValidatorUrl == "" {
		return
	}

	// Try a single dial attempt
	conn, _, err := websocket.DefaultDialer.Dial(validator.WssValidatorUrl, nil)
	if err != nil {
		return
	}

	// Store back into the shared map under lock
	WEBSOCKET_CONNECTION_MUTEX.Lock()

	wsConnMap[validatorId] = conn

	WEBSOCKET_CONNECTION_MUTEX.Unlock()

}

func (sw *StakeWaiter) reconnectFailed(wsConnMap map[string]*websocket.Conn) {
	sw.mu.Lock()
	failedCopy := make([]string, 0, len(sw.failed))
	for id := range sw.failed {
		failedCopy = append(failedCopy, id)
	}
	// reset failed set for the next round, keep a copy for LastFailed
	for k := range sw.failed {
		delete(sw.failed, k)
	}
	sw.lastFailed = failedCopy
	sw.mu.Unlock()

	for _, id := range failedCopy {
		reconnectOnce(id, wsConnMap)
	}
}

func (sw *StakeWaiter) sendMessages(targets []string, msg []byte, wsConnMap map[string]*websocket.Conn, done chan struct{}) {
	for _, id := range targets {
		// Read connection from the shared map under RLock
		WEBSOCKET_CONNECTION_MUTEX.RLock()
		conn, ok := wsConnMap[id]
		WEBSOCKET_CONNECTION_MUTEX.RUnlock()
		if !ok || conn == nil {
			// Mark as failed so we try to reconnect after the round
			sw.mu.Lock()
			sw.failed[id] = struct{}{}
			sw.mu.Unlock()
			continue
		}

		go func(id string, c *websocket.Conn) {
			// Single-writer guard for this websocket
			wmu := getWriteMu(id)
			wmu.Lock()
			err := c.WriteMessage(websocket.TextMessage, msg)
			wmu.Unlock()
			if err != nil {
				// Mark as failed and remove the connection safely
				sw.mu.Lock()
				sw.failed[id] = struct{}{}
				sw.mu.Unlock()

				WEBSOCKET_CONNECTION_MUTEX.Lock()
				_ = c.Close()
				delete(wsConnMap, id)
				WEBSOCKET_CONNECTION_MUTEX.Unlock()
				return
			}

			// Short read deadline for reply
			_ = c.SetReadDeadline(time.Now().Add(time.Second))
			_, raw, err := c.ReadMessage()
			if err != nil {
				// Mark as failed and remove the connection safely
				sw.mu.Lock()
				sw.failed[id] = struct{}{}
				sw.mu.Unlock()

				WEBSOCKET_CONNECTION_MUTEX.Lock()
				_ = c.Close()
				delete(wsConnMap, id)
				WEBSOCKET_CONNECTION_MUTEX.Unlock()
				return
			}

			select {
			case sw.responseCh <- stakeResponse{id: id, msg: raw}:
			case <-done:
			}
		}(id, conn)
	}
}
