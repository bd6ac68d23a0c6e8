package websocket_pack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/lxzan/gws"
)

type Handler struct{}

type IncomingMsg struct {
	Route string `json:"route"`
}

func (h *Handler) OnOpen(conn *gws.Conn) {}

func (h *Handler) OnClose(conn *gws.Conn, err error) {

	RemoveResultsSubscriber(conn)

}

func (h *Handler) OnPing(conn *gws.Conn, payload []byte) {}

func (h *Handler) OnPong(conn *gws.Conn, payload []byte) {}

func (h *Handler) OnMessage(connection *gws.Conn, message *gws.Message) {

	defer message.Close()

	var incoming IncomingMsg

	if err := json.Unmarshal(message.Bytes(), &incoming); err != nil {

		connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"invalid_json"}`))

		return

	}

	switch incoming.Route {

	case "submit_response":

		var req WsSubmitResponseRequest

		if err := json.Unmarshal(message.Bytes(), &req); err != nil {
			connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"invalid_submit_response_request"}`))
			return
		}

		SubmitResponse(req, connection)

	case "get_task":

		var req WsGetTaskRequest

		if err := json.Unmarshal(message.Bytes(), &req); err != nil {
			connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"invalid_task_request"}`))
			return
		}

		GetTask(req, connection)

	case "get_aggregated_result":

		var req WsGetAggregatedResultRequest

		if err := json.Unmarshal(message.Bytes(), &req); err != nil {
			connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"invalid_aggregated_result_request"}`))
			return
		}

		GetAggregatedResult(req, connection)

	case "accept_task_announcement":

		var req WsTaskAnnouncementRequest

		if err := json.Unmarshal(message.Bytes(), &req); err != nil {
			connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"invalid_task_announcement"}`))
			return
		}

		AcceptTaskAnnouncement(req, connection)

	case "subscribe_results":

		SubscribeResults(connection)

	default:
		connection.WriteMessage(gws.OpcodeText, []byte(`{"error":"unknown_type"}`))

	}
}

func CreateWebsocketServer() {

	upgrader := gws.NewUpgrader(&Handler{}, &gws.ServerOption{
		ParallelEnabled:   true,
		Recovery:          gws.Recovery,
		PermessageDeflate: gws.PermessageDeflate{Enabled: true},
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {

		conn, err := upgrader.Upgrade(w, r)

		if err != nil {

			return

		}

		go func() {

			conn.ReadLoop()

		}()

	})

	wsInterface := globals.CONFIGURATION.WebSocketInterface

	wsPort := globals.CONFIGURATION.WebSocketPort

	address := wsInterface + ":" + strconv.Itoa(wsPort)

	utils.LogWithTime(fmt.Sprintf("Websocket server is starting at ws://%s ...✅", address), utils.CYAN_COLOR)

	if err := http.ListenAndServe(address, nil); err != nil {

		utils.LogWithTime(fmt.Sprintf("Error in websocket server: %s", err), utils.RED_COLOR)

	}

}
