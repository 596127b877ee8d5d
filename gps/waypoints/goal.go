package waypoints

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Status is the state of a follow request as reported by the server.
type Status string

// The states of a follow request. Rejected, Succeeded, Aborted and Canceled are final.
const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusSucceeded Status = "succeeded"
	StatusAborted   Status = "aborted"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further transition can follow s.
func (s Status) Terminal() bool {
	return lo.Contains([]Status{StatusRejected, StatusSucceeded, StatusAborted, StatusCanceled}, s)
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusPending, StatusAccepted, StatusRejected},
	StatusAccepted: {StatusAccepted, StatusSucceeded, StatusAborted, StatusCanceled},
}

// Goal is one ordered list of waypoints submitted to the server.
type Goal struct {
	ID        uuid.UUID  `json:"id"`
	Waypoints []Waypoint `json:"waypoints"`
}

// NewGoal returns a goal with a fresh ID.
func NewGoal(wps []Waypoint) Goal {
	return Goal{ID: uuid.New(), Waypoints: wps}
}

// Event is a status update from the server. Accepted events may repeat to carry progress.
type Event struct {
	GoalID          uuid.UUID `json:"goal_id"`
	Status          Status    `json:"status"`
	CurrentWaypoint int       `json:"current_waypoint,omitempty"`
	MissedWaypoints []int     `json:"missed_waypoints,omitempty"`
}

// TransitionError is returned for an event the request's current state does not allow.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid goal transition from %q to %q", e.From, e.To)
}

// Request tracks a submitted goal.
type Request struct {
	Goal Goal

	status          Status
	currentWaypoint int
	missed          []int
}

// NewRequest returns a pending request for goal.
func NewRequest(goal Goal) *Request {
	return &Request{Goal: goal, status: StatusPending}
}

// Apply moves the request to ev's status. Events for other goals and transitions out of a final
// state are errors and leave the request unchanged.
func (r *Request) Apply(ev Event) error {
	if ev.GoalID != r.Goal.ID {
		return errors.Errorf("event for goal %s applied to goal %s", ev.GoalID, r.Goal.ID)
	}
	if !lo.Contains(transitions[r.status], ev.Status) {
		return &TransitionError{From: r.status, To: ev.Status}
	}
	r.status = ev.Status
	if ev.CurrentWaypoint > r.currentWaypoint {
		r.currentWaypoint = ev.CurrentWaypoint
	}
	if ev.Status.Terminal() {
		r.missed = lo.Uniq(append(r.missed, ev.MissedWaypoints...))
	}
	return nil
}

// Status returns the current state.
func (r *Request) Status() Status {
	return r.status
}

// CurrentWaypoint returns the furthest waypoint index the server reported.
func (r *Request) CurrentWaypoint() int {
	return r.currentWaypoint
}

// Missed returns the indices of the waypoints the server reported as not reached.
func (r *Request) Missed() []int {
	return r.missed
}
