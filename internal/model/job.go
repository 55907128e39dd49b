package model

import "time"

// Command identifies the kind of work a queued job represents.
type Command string

const (
	CommandPrice       Command = "price"
	CommandChart       Command = "chart"
	CommandCandlestick Command = "candlestick"
	CommandIndicator   Command = "indicator"
)

// ValidCommand reports whether c is one of the known job commands.
func ValidCommand(c Command) bool {
	switch c {
	case CommandPrice, CommandChart, CommandCandlestick, CommandIndicator:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a queued job.
//
// Transitions: pending → processing → done|failed, plus the user-initiated
// pending → cancelled side transition. The queue store owns the status
// column; dispatchers only propose transitions through the store API.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Job is one unit of queued work created by an inbound chat command.
type Job struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Command   Command   `json:"command"`
	Pair      string    `json:"pair"` // exchange symbol, e.g. "BTCUSDT"
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
