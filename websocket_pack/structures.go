package websocket_pack

import (
	"encoding/json"

	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/task_pack"
)

type WsSubmitResponseRequest struct {
	Route       string          `json:"route"`
	TaskIndex   uint64          `json:"taskIndex"`
	ValidatorId string          `json:"validatorId"`
	Payload     json.RawMessage `json:"payload"`
	Sig         string          `json:"sig"`
}

type WsSubmitResponseReply struct {
	Status    string `json:"status"`
	TaskIndex uint64 `json:"taskIndex"`
	Error     string `json:"error,omitempty"`
}

type WsGetTaskRequest struct {
	Route     string `json:"route"`
	TaskIndex uint64 `json:"taskIndex"`
}

type WsTaskReply struct {
	Status string       `json:"status"`
	Task   *engine.Task `json:"task,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type WsGetAggregatedResultRequest struct {
	Route     string `json:"route"`
	TaskIndex uint64 `json:"taskIndex"`
}

type WsAggregatedResultReply struct {
	Status  string                   `json:"status"`
	Result  *engine.AggregatedResult `json:"result,omitempty"`
	Payload json.RawMessage          `json:"payload,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type WsTaskAnnouncementRequest struct {
	Route        string                     `json:"route"`
	Announcement task_pack.TaskAnnouncement `json:"announcement"`
}

type WsSubscribeResultsRequest struct {
	Route string `json:"route"`
}

type WsSubscribeResultsReply struct {
	Status string `json:"status"`
}
