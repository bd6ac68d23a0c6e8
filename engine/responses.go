package engine

import "sort"

// ResponseCollector stores at most one response per (task, validator) pair.
// Responses are immutable once stored; Seq records per-task arrival order so
// a restored engine rebuilds identical group ordering.
type ResponseCollector struct {
	byTask map[uint64]map[string]*Response
	seq    map[uint64]uint64
}

func NewResponseCollector() *ResponseCollector {
	return &ResponseCollector{
		byTask: make(map[uint64]map[string]*Response),
		seq:    make(map[uint64]uint64),
	}
}

func (collector *ResponseCollector) Has(taskIndex uint64, validatorId string) bool {

	responses, ok := collector.byTask[taskIndex]

	if !ok {
		return false
	}

	_, stored := responses[validatorId]

	return stored
}

func (collector *ResponseCollector) Store(taskIndex uint64, validatorId string, payload []byte, signature string, timestamp int64) *Response {

	responses, ok := collector.byTask[taskIndex]

	if !ok {
		responses = make(map[string]*Response)
		collector.byTask[taskIndex] = responses
	}

	response := &Response{
		TaskIndex: taskIndex,
		Validator: validatorId,
		Payload:   append([]byte(nil), payload...),
		Signature: signature,
		Timestamp: timestamp,
		Seq:       collector.seq[taskIndex],
	}

	collector.seq[taskIndex]++

	responses[validatorId] = response

	return response
}

func (collector *ResponseCollector) ResponsesForTask(taskIndex uint64) []Response {

	stored, ok := collector.byTask[taskIndex]

	if !ok {
		return nil
	}

	responses := make([]Response, 0, len(stored))

	for _, response := range stored {
		responses = append(responses, *response)
	}

	sort.Slice(responses, func(i, j int) bool { return responses[i].Seq < responses[j].Seq })

	return responses
}

func (collector *ResponseCollector) CountForTask(taskIndex uint64) int {
	return len(collector.byTask[taskIndex])
}
