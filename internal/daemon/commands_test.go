package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/test/fixtures"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		cmds   []Command
		run    domain.RunState
		config func(*domain.WorkerConfig)
	}{
		{
			name: "start",
			cmds: []Command{{Kind: CmdStart}},
			run:  domain.RunRunning,
		},
		{
			name: "start then stop",
			cmds: []Command{{Kind: CmdStart}, {Kind: CmdStop}},
			run:  domain.RunStopped,
		},
		{
			name: "double toggle",
			cmds: []Command{{Kind: CmdToggle}, {Kind: CmdToggle}},
			run:  domain.RunStopped,
		},
		{
			name: "update config",
			cmds: []Command{{Kind: CmdUpdateConfig, SkipEnabled: false, Target: "other"}},
			run:  domain.RunStopped,
			config: func(c *domain.WorkerConfig) {
				c.SkipEnabled = false
				c.TargetProcess = "other"
			},
		},
		{
			name:   "set threshold",
			cmds:   []Command{{Kind: CmdSetThreshold, Threshold: 0.65}},
			run:    domain.RunStopped,
			config: func(c *domain.WorkerConfig) { c.Threshold = 0.65 },
		},
		{
			name: "patch config",
			cmds: []Command{{Kind: CmdPatchConfig, Patch: ConfigPatch{TargetProcess: ptr("other"), Threshold: ptr(0.6)}}},
			run:  domain.RunStopped,
			config: func(c *domain.WorkerConfig) {
				c.TargetProcess = "other"
				c.Threshold = 0.6
			},
		},
		{
			name: "unknown kind is ignored",
			cmds: []Command{{Kind: "reboot"}},
			run:  domain.RunStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(fixtures.NewFakeFocus("explorer.exe"), &stubSkipper{})
			defer c.Stop()

			var snap domain.Snapshot
			for _, cmd := range tt.cmds {
				snap = c.Apply(cmd)
			}

			want := domain.DefaultWorkerConfig()
			if tt.config != nil {
				tt.config(&want)
			}
			assert.Equal(t, tt.run, snap.Run)
			assert.Equal(t, want, snap.Config)
		})
	}
}

func TestServe_AppliesInOrderAndReplies(t *testing.T) {
	c, _ := newTestController(fixtures.NewFakeFocus("explorer.exe"), &stubSkipper{})
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmds := make(chan Command)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Serve(ctx, cmds)
	}()

	reply := make(chan domain.Snapshot, 1)
	cmds <- Command{Kind: CmdUpdateConfig, SkipEnabled: true, Target: "a"}
	cmds <- Command{Kind: CmdUpdateConfig, SkipEnabled: false, Target: "b"}
	cmds <- Command{Kind: CmdStart, Reply: reply}

	select {
	case snap := <-reply:
		assert.Equal(t, domain.RunRunning, snap.Run)
		assert.Equal(t, "b", snap.Config.TargetProcess)
		assert.False(t, snap.Config.SkipEnabled)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ReturnsWhenChannelClosed(t *testing.T) {
	c, _ := newTestController(fixtures.NewFakeFocus(""), &stubSkipper{})
	cmds := make(chan Command, 1)
	cmds <- Command{Kind: CmdSetThreshold, Threshold: 0.5}
	close(cmds)

	c.Serve(context.Background(), cmds)

	require.Equal(t, 0.5, c.Config().Threshold)
}

func TestServe_UnbufferedReplyDoesNotBlock(t *testing.T) {
	c, _ := newTestController(fixtures.NewFakeFocus(""), &stubSkipper{})
	cmds := make(chan Command, 2)
	cmds <- Command{Kind: CmdSetThreshold, Threshold: 0.7, Reply: make(chan domain.Snapshot)}
	cmds <- Command{Kind: CmdSetThreshold, Threshold: 0.75}
	close(cmds)

	c.Serve(context.Background(), cmds)

	assert.Equal(t, 0.75, c.Config().Threshold)
}

func ptr[T any](v T) *T { return &v }
