package session

import (
	"context"
	"fmt"

	"github.com/rbright/lingua/internal/fsm"
	"github.com/rbright/lingua/internal/ipc"
)

// Handle serves IPC commands against the controller.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.respond(true, "status", nil)
	case ipc.CommandStop, ipc.CommandToggle:
		if c.State() == fsm.StateProcessing {
			return c.respond(false, "", fmt.Errorf("already processing"))
		}
		if err := c.Stop(ctx); err != nil {
			return c.respond(false, "", err)
		}
		return c.respond(true, "stop requested", nil)
	case ipc.CommandRetry:
		if err := c.Retry(); err != nil {
			return c.respond(false, "", err)
		}
		return c.respond(true, "ready", nil)
	case ipc.CommandAck:
		if err := c.Acknowledge(); err != nil {
			return c.respond(false, "", err)
		}
		return c.respond(true, "acknowledged", nil)
	case ipc.CommandPlay:
		if err := c.PlayTurn(ctx, req.TurnID); err != nil {
			return c.respond(false, "", err)
		}
		return c.respond(true, "playback toggled", nil)
	case ipc.CommandStopPlayback:
		c.StopPlayback()
		return c.respond(true, "playback stopped", nil)
	default:
		return c.respond(false, "", fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) respond(ok bool, message string, err error) ipc.Response {
	v := c.Snapshot()
	resp := ipc.Response{
		OK:             ok,
		State:          string(v.State),
		Message:        message,
		ElapsedSeconds: v.ElapsedSeconds,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if ok && v.Problem != nil && message == "status" {
		resp.Message = v.Problem.Message
	}
	if v.Turn != nil {
		resp.Turn = &ipc.Turn{
			ID:           v.Turn.ID,
			SessionID:    v.Turn.Result.SessionID,
			Transcript:   v.Turn.Result.Transcript,
			TutorMessage: v.Turn.Result.TutorMessage,
			Corrections:  len(v.Turn.Result.Corrections),
			HasAudio:     v.Turn.Result.HasAudio(),
			Playing:      v.Playing,
		}
	}
	return resp
}
