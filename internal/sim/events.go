package sim

import (
	"fmt"

	"archops-sim/internal/catalog"
)

// Event is a structured engine notification. The set of implementations is closed.
type Event interface {
	EventType() string
	At() int
}

// Event type names.
const (
	EventRunReset    = "RUN_RESET"
	EventRunEnd      = "RUN_END"
	EventPurchase    = "PURCHASE"
	EventTicketFixed = "TICKET_FIXED"
	EventNotice      = "NOTICE"
)

// Notice categories.
const (
	CategoryIncident = "INCIDENT"
	CategoryOther    = "OTHER"
)

// RunResetEvent starts every run.
type RunResetEvent struct {
	AtSec  int     `json:"at_sec"`
	Seed   uint32  `json:"seed"`
	Preset Preset  `json:"preset"`
	Budget float64 `json:"budget"`
	Debt   float64 `json:"debt"`
}

// RunEndEvent is emitted once when the run terminates.
type RunEndEvent struct {
	AtSec  int       `json:"at_sec"`
	Reason EndReason `json:"reason"`
	Score  float64   `json:"score"`
}

// PurchaseEvent records a capacity shop purchase.
type PurchaseEvent struct {
	AtSec int      `json:"at_sec"`
	Item  ShopItem `json:"item"`
	Cost  float64  `json:"cost"`
}

// TicketFixedEvent records a fixed ticket.
type TicketFixedEvent struct {
	AtSec  int        `json:"at_sec"`
	Kind   TicketKind `json:"kind"`
	Effort int        `json:"effort"`
}

// NoticeEvent carries an event log line.
type NoticeEvent struct {
	AtSec    int    `json:"at_sec"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (e RunResetEvent) EventType() string    { return EventRunReset }
func (e RunEndEvent) EventType() string      { return EventRunEnd }
func (e PurchaseEvent) EventType() string    { return EventPurchase }
func (e TicketFixedEvent) EventType() string { return EventTicketFixed }
func (e NoticeEvent) EventType() string      { return EventNotice }

func (e RunResetEvent) At() int    { return e.AtSec }
func (e RunEndEvent) At() int      { return e.AtSec }
func (e PurchaseEvent) At() int    { return e.AtSec }
func (e TicketFixedEvent) At() int { return e.AtSec }
func (e NoticeEvent) At() int      { return e.AtSec }

func (s *Simulator) emit(e Event) { s.events = append(s.events, e) }

// logf prepends a line to the event log and queues it as a notice.
func (s *Simulator) logf(category, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("t+%ds  %s", s.timeSec, msg)
	s.eventLines = append([]string{line}, s.eventLines...)
	if len(s.eventLines) > eventLogLimit {
		s.eventLines = s.eventLines[:eventLogLimit]
	}
	s.emit(NoticeEvent{AtSec: s.timeSec, Category: category, Message: msg})
}

// DrainEvents returns queued events in emission order and clears the queue.
func (s *Simulator) DrainEvents() []Event {
	out := s.events
	s.events = nil
	return out
}

// TickSummary is the once-per-second payload for achievement tracking.
type TickSummary struct {
	AtSec    int            `json:"at_sec"`
	Backlog  int            `json:"backlog"`
	Rating   float64        `json:"rating"`
	Capacity float64        `json:"capacity"`
	Budget   float64        `json:"budget"`
	Debt     float64        `json:"debt"`
	Kinds    []catalog.Kind `json:"kinds"`
}

// TickEvent summarizes the current second for achievement tracking.
// Kinds lists each placed archetype once, in catalog order.
func (s *Simulator) TickEvent() TickSummary {
	var kinds []catalog.Kind
	for _, k := range catalog.Kinds {
		for _, c := range s.components {
			if c.Kind == k {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return TickSummary{
		AtSec:    s.timeSec,
		Backlog:  len(s.tickets),
		Rating:   s.rating,
		Capacity: s.capacity.cur,
		Budget:   s.budget,
		Debt:     s.debt,
		Kinds:    kinds,
	}
}

// Reward is a budget and score delta granted by a host collaborator.
type Reward struct {
	Budget float64 `json:"budget"`
	Score  float64 `json:"score"`
}

// ApplyReward adds r to the running budget and score. It is ignored once the run has ended.
func (s *Simulator) ApplyReward(r Reward) {
	if s.ended {
		return
	}
	s.budget += r.Budget
	s.score += r.Score
}
