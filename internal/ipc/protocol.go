package ipc

// Commands understood by the session owner.
const (
	CommandStatus       = "status"
	CommandStop         = "stop"
	CommandToggle       = "toggle"
	CommandRetry        = "retry"
	CommandAck          = "ack"
	CommandPlay         = "play"
	CommandStopPlayback = "stop-playback"
)

// Request is one newline-delimited command sent to the session owner.
type Request struct {
	Command string `json:"command"`
	// TurnID selects the turn for play; empty means the displayed turn.
	TurnID string `json:"turn_id,omitempty"`
}

// Response is the owner's reply, including a snapshot of the current turn.
type Response struct {
	OK             bool   `json:"ok"`
	State          string `json:"state,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	Turn           *Turn  `json:"turn,omitempty"`
}

// Turn summarizes a completed tutor exchange for remote callers.
type Turn struct {
	ID           string `json:"id"`
	SessionID    string `json:"session_id,omitempty"`
	Transcript   string `json:"transcript"`
	TutorMessage string `json:"tutor_message"`
	Corrections  int    `json:"corrections"`
	HasAudio     bool   `json:"has_audio"`
	Playing      bool   `json:"playing,omitempty"`
}
