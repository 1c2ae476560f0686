package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// CommandKind names an operation on the controller.
type CommandKind string

const (
	CmdStart        CommandKind = "start"
	CmdStop         CommandKind = "stop"
	CmdToggle       CommandKind = "toggle"
	CmdUpdateConfig CommandKind = "update_config"
	CmdSetThreshold CommandKind = "set_threshold"
	CmdPatchConfig  CommandKind = "patch_config"
)

// Command is one request from a control source (hotkey, HTTP, signal).
// Reply, when set, receives the controller snapshot after the command ran;
// it must be buffered.
type Command struct {
	Kind        CommandKind
	SkipEnabled bool
	Target      string
	Threshold   float64
	Patch       ConfigPatch
	Reply       chan<- domain.Snapshot
}

// Serve applies commands in arrival order until ctx is canceled or cmds is
// closed. It is the only consumer of the queue, so commands never interleave.
func (c *Controller) Serve(ctx context.Context, cmds <-chan Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			snap := c.Apply(cmd)
			if cmd.Reply != nil {
				select {
				case cmd.Reply <- snap:
				default:
				}
			}
		}
	}
}

// Apply executes a single command synchronously.
func (c *Controller) Apply(cmd Command) domain.Snapshot {
	switch cmd.Kind {
	case CmdStart:
		c.Start()
	case CmdStop:
		c.Stop()
	case CmdToggle:
		c.Toggle()
	case CmdUpdateConfig:
		c.UpdateConfig(cmd.SkipEnabled, cmd.Target)
	case CmdSetThreshold:
		c.SetThreshold(cmd.Threshold)
	case CmdPatchConfig:
		c.PatchConfig(cmd.Patch)
	default:
		c.logger.Warn("unknown command ignored", zap.String("kind", string(cmd.Kind)))
	}
	return c.Snapshot()
}
