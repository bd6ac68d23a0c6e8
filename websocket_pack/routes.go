package websocket_pack

import (
	"encoding/json"
	"strconv"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/structures"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/lxzan/gws"
)

func SubmitResponse(parsedRequest WsSubmitResponseRequest, connection *gws.Conn) {

	if !globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Load() {
		return
	}

	err := handlers.CONSENSUS_ENGINE.SubmitResponse(
		parsedRequest.TaskIndex,
		parsedRequest.ValidatorId,
		parsedRequest.Payload,
		parsedRequest.Sig,
	)

	if err != nil {

		rejectionReason := metrics_pack.RejectionReason(err)

		metrics_pack.RESPONSES_REJECTED.WithLabelValues(rejectionReason).Inc()

		reply := WsSubmitResponseReply{Status: "ERROR", TaskIndex: parsedRequest.TaskIndex, Error: rejectionReason}

		if jsonResponse, err := json.Marshal(reply); err == nil {
			connection.WriteMessage(gws.OpcodeText, jsonResponse)
		}

		return

	}

	// A validator that just submitted is clearly reachable again
	utils.ClearValidatorUnreachable(parsedRequest.ValidatorId)

	reply := WsSubmitResponseReply{Status: "OK", TaskIndex: parsedRequest.TaskIndex}

	if jsonResponse, err := json.Marshal(reply); err == nil {
		connection.WriteMessage(gws.OpcodeText, jsonResponse)
	}

}

func GetTask(parsedRequest WsGetTaskRequest, connection *gws.Conn) {

	if !globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Load() {
		return
	}

	task, err := handlers.CONSENSUS_ENGINE.GetTask(parsedRequest.TaskIndex)

	if err != nil {

		reply := WsTaskReply{Status: "ERROR", Error: "task_not_found"}

		if jsonResponse, err := json.Marshal(reply); err == nil {
			connection.WriteMessage(gws.OpcodeText, jsonResponse)
		}

		return

	}

	reply := WsTaskReply{Status: "OK", Task: &task}

	if jsonResponse, err := json.Marshal(reply); err == nil {
		connection.WriteMessage(gws.OpcodeText, jsonResponse)
	}

}

func GetAggregatedResult(parsedRequest WsGetAggregatedResultRequest, connection *gws.Conn) {

	if !globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Load() {
		return
	}

	result, payload, err := handlers.CONSENSUS_ENGINE.GetAggregatedResult(parsedRequest.TaskIndex)

	if err != nil {

		reply := WsAggregatedResultReply{Status: "ERROR", Error: "result_not_found"}

		if jsonResponse, err := json.Marshal(reply); err == nil {
			connection.WriteMessage(gws.OpcodeText, jsonResponse)
		}

		return

	}

	reply := WsAggregatedResultReply{Status: "OK", Result: &result, Payload: payload}

	if jsonResponse, err := json.Marshal(reply); err == nil {
		connection.WriteMessage(gws.OpcodeText, jsonResponse)
	}

}

// AcceptTaskAnnouncement implements the validator side of the announcement
// round trip: verify the announcement, keep a local record for the executor
// tooling, then ack by signing the announcement hash with our own key.
func AcceptTaskAnnouncement(parsedRequest WsTaskAnnouncementRequest, connection *gws.Conn) {

	if !globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Load() {
		return
	}

	announcement := parsedRequest.Announcement

	// Announcements are only trusted from the controller key
	if announcement.Announcer != globals.GENESIS.ControllerPubKey {
		return
	}

	if len(announcement.Payload) == 0 {
		return
	}

	if !announcement.VerifySignature() {
		return
	}

	announcementBytes, err := json.Marshal(announcement)

	if err != nil {
		return
	}

	// Store the announced task, and only ack once it is on disk

	key := []byte("ANNOUNCED_TASK:" + strconv.FormatUint(announcement.TaskIndex, 10))

	if err := databases.TASKS.Put(key, announcementBytes, nil); err != nil {
		return
	}

	ack := structures.TaskAnnouncementAck{
		TaskIndex: announcement.TaskIndex,
		Validator: globals.CONFIGURATION.PublicKey,
		Sig:       cryptography.GenerateSignature(globals.CONFIGURATION.PrivateKey, announcement.GetHash()),
	}

	if jsonResponse, err := json.Marshal(ack); err == nil {

		connection.WriteMessage(gws.OpcodeText, jsonResponse)

	}

}
