package metrics_pack

import (
	"errors"

	"github.com/stakequorum/stakequorum-core/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var REGISTRY = prometheus.NewRegistry()

var TASKS_CREATED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "tasks_created_total",
	Help:      "Tasks accepted by createTask.",
})

var TASKS_FINALIZED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "tasks_finalized_total",
	Help:      "Tasks that reached stake quorum and were finalized.",
})

var TASKS_FAILED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "tasks_failed_total",
	Help:      "Tasks that timed out before reaching quorum.",
})

var TASKS_CHALLENGED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "tasks_challenged_total",
	Help:      "Finalized tasks that were challenged.",
})

var RESPONSES_ACCEPTED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "responses_accepted_total",
	Help:      "Validator responses that passed every submission check.",
})

var RESPONSES_REJECTED = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "responses_rejected_total",
	Help:      "Validator responses rejected at submission, by reason.",
}, []string{"reason"})

var ANNOUNCEMENTS_CONFIRMED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "announcements_confirmed_total",
	Help:      "Task announcements acknowledged by a stake quorum of validators.",
})

var RESULT_EVENTS_DELIVERED = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "stakequorum",
	Name:      "result_events_delivered_total",
	Help:      "Result events flushed from the outbox to subscribers.",
})

var ACTIVE_VALIDATORS = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "stakequorum",
	Name:      "active_validators",
	Help:      "Validators currently in the active set.",
})

var TOTAL_ACTIVE_STAKE = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "stakequorum",
	Name:      "total_active_stake",
	Help:      "Sum of stake across the active validator set.",
})

var PENDING_TASKS = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "stakequorum",
	Name:      "pending_tasks",
	Help:      "Tasks still collecting responses.",
})

// RejectionReason normalizes an engine submission error into the label
// vocabulary of RESPONSES_REJECTED. Both transports use it, so the same
// rejection counts under the same label no matter how it arrived.
func RejectionReason(err error) string {

	switch {

	case errors.Is(err, engine.ErrTaskNotFound):
		return "task_not_found"

	case errors.Is(err, engine.ErrTaskAlreadyFinalized):
		return "task_already_finalized"

	case errors.Is(err, engine.ErrTaskTimedOut):
		return "task_timed_out"

	case errors.Is(err, engine.ErrDuplicateResponse):
		return "duplicate_response"

	case errors.Is(err, engine.ErrNotRegistered):
		return "not_registered"

	case errors.Is(err, engine.ErrInsufficientStake):
		return "insufficient_stake"

	case errors.Is(err, engine.ErrInvalidSignature):
		return "invalid_signature"

	default:
		return "internal_error"

	}

}

func init() {

	REGISTRY.MustRegister(
		TASKS_CREATED,
		TASKS_FINALIZED,
		TASKS_FAILED,
		TASKS_CHALLENGED,
		RESPONSES_ACCEPTED,
		RESPONSES_REJECTED,
		ANNOUNCEMENTS_CONFIRMED,
		RESULT_EVENTS_DELIVERED,
		ACTIVE_VALIDATORS,
		TOTAL_ACTIVE_STAKE,
		PENDING_TASKS,
	)

	REGISTRY.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	REGISTRY.MustRegister(collectors.NewGoCollector())

}
