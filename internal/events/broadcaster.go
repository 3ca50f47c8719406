package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"maintenance-service/internal/model"
)

const (
	TypeTaskCreated           = "task.created"
	TypeTaskUpdated           = "task.updated"
	TypeTaskDeleted           = "task.deleted"
	TypeTimeslotStatusChanged = "timeslot.status_changed"
	TypePropertiesSynced      = "property.synced"
	TypeProblemReported       = "problem.reported"
)

type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type TaskPayload struct {
	TaskID       string           `json:"task_id"`
	TicketNumber string           `json:"ticket_number"`
	Status       model.TaskStatus `json:"status"`
}

type TimeslotStatusPayload struct {
	TaskID         string               `json:"task_id"`
	TicketNumber   string               `json:"ticket_number"`
	SlotIndex      int                  `json:"slot_index"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status"`
	TaskStatus     model.TaskStatus     `json:"task_status"`
}

type PropertiesSyncedPayload struct {
	Count int `json:"count"`
}

type ProblemPayload struct {
	ProblemID  string `json:"problem_id"`
	PropertyID string `json:"property_id"`
	Title      string `json:"title"`
}

// Broadcaster publishes typed change events through the hub.
type Broadcaster struct {
	hub *Hub
	log zerolog.Logger
}

func NewBroadcaster(hub *Hub, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, log: log}
}

func (b *Broadcaster) TaskCreated(task *model.Task) {
	b.publish(TypeTaskCreated, taskPayload(task))
}

func (b *Broadcaster) TaskUpdated(task *model.Task) {
	b.publish(TypeTaskUpdated, taskPayload(task))
}

func (b *Broadcaster) TaskDeleted(taskID string) {
	b.publish(TypeTaskDeleted, TaskPayload{TaskID: taskID})
}

func (b *Broadcaster) TimeslotStatusChanged(task *model.Task, index int, status model.ApprovalStatus) {
	b.publish(TypeTimeslotStatusChanged, TimeslotStatusPayload{
		TaskID:         task.ID.String(),
		TicketNumber:   task.TicketNumber,
		SlotIndex:      index,
		ApprovalStatus: status,
		TaskStatus:     task.Status,
	})
}

func (b *Broadcaster) PropertiesSynced(count int) {
	b.publish(TypePropertiesSynced, PropertiesSyncedPayload{Count: count})
}

func (b *Broadcaster) ProblemReported(problem *model.Problem) {
	b.publish(TypeProblemReported, ProblemPayload{
		ProblemID:  problem.ID.String(),
		PropertyID: problem.PropertyID.String(),
		Title:      problem.Title,
	})
}

func taskPayload(task *model.Task) TaskPayload {
	return TaskPayload{
		TaskID:       task.ID.String(),
		TicketNumber: task.TicketNumber,
		Status:       task.Status,
	}
}

func (b *Broadcaster) publish(eventType string, payload interface{}) {
	msg := Message{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Str("type", eventType).Msg("failed to marshal event")
		return
	}
	b.hub.Broadcast(data)
}
