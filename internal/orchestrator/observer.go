package orchestrator

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives structured events as an action progresses. One
// implementation logs to the console; tests use a recording double.
type Observer interface {
	// Printf logs an unstructured message.
	Printf(format string, v ...any)

	// Event emits a structured event.
	Event(event Event)
}

// Event is one structured orchestration event.
type Event struct {
	Type      EventType
	Stage     string
	Node      string
	Message   string
	Timestamp time.Time
}

// EventType classifies orchestration events.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageSucceeded EventType = "stage.succeeded"
	EventStageFailed    EventType = "stage.failed"
	EventStageTimedOut  EventType = "stage.timed_out"
	EventStageSkipped   EventType = "stage.skipped"
	EventNodeProgress   EventType = "node.progress"
	EventWarning        EventType = "warning"
)

// ConsoleObserver logs events through the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	var parts []string
	parts = append(parts, string(event.Type))
	if event.Stage != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Stage))
	}
	if event.Node != "" {
		parts = append(parts, "node="+event.Node)
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	log.Print(strings.Join(parts, " "))
}
