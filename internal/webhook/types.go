package webhook

import "context"

// CommandRequest is the POST /command payload.
type CommandRequest struct {
	LED        string   `json:"led"`
	Action     string   `json:"action"`
	Sequence   string   `json:"sequence,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// CommandResponse acknowledges an accepted command.
type CommandResponse struct {
	Status    string `json:"status"`
	CommandID string `json:"command_id"`
}

// StatusColor is the last written color of an LED.
type StatusColor struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// StatusPosition locates a running sequence within its steps.
type StatusPosition struct {
	StepIndex          int    `json:"step_index"`
	LoopNumber         uint32 `json:"loop_number"`
	TimeInStepMS       int64  `json:"time_in_step_ms"`
	TimeUntilStepEndMS int64  `json:"time_until_step_end_ms"`
}

// LEDStatus is one row of the GET /leds response. ElapsedMS and Position
// are omitted when the LED has no running sequence.
type LEDStatus struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Sequence  string          `json:"sequence,omitempty"`
	Color     StatusColor     `json:"color"`
	ElapsedMS *int64          `json:"elapsed_ms,omitempty"`
	Position  *StatusPosition `json:"position,omitempty"`
}

// SnapshotFunc returns the current state of every LED. The webhook server
// calls it on GET /leds; implementations answer from the goroutine owning
// the sequencers.
type SnapshotFunc func(ctx context.Context) ([]LEDStatus, error)
