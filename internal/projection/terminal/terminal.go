// Package terminal renders the peer projection as text.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/presence"
	"github.com/sharetube/watchparty/internal/roster"
	"github.com/sharetube/watchparty/internal/voice"
)

type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	colors bool
}

func New(out io.Writer, colors bool) *Terminal {
	return &Terminal{out: out, colors: colors}
}

func (t *Terminal) paint(text, hex string) string {
	if !t.colors || hex == "" {
		return text
	}

	return color.HEX(hex).Sprint(text)
}

func (t *Terminal) println(tag, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.colors {
		tag = color.New(color.FgGray, color.OpBold).Render(tag)
	}
	fmt.Fprintf(t.out, "%s %s\n", tag, line)
}

func (t *Terminal) RenderStatus(s lifecycle.Status) {
	t.println("[status]", t.paint(s.Label, s.Color))
}

func (t *Terminal) RenderRoster(v roster.View) {
	cards := append([]roster.Card{v.Local}, v.Slots...)

	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Slot", "Name", "Mic", "Speaking"})
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")

	for _, c := range cards {
		if c.Empty {
			table.Append([]string{strconv.Itoa(c.Slot), "-", "", ""})
			continue
		}

		name := fmt.Sprintf("%s %s", t.paint(c.Initial, c.Color), c.Label)
		table.Append([]string{
			strconv.Itoa(c.Slot),
			name,
			lo.Ternary(c.MicEnabled, "on", "off"),
			lo.Ternary(c.IsSpeaking, "yes", ""),
		})
	}
	table.Render()

	t.mu.Lock()
	defer t.mu.Unlock()

	if v.RoomCode != "" {
		fmt.Fprintln(t.out, v.RoomCode)
	}
	fmt.Fprint(t.out, sb.String())
	fmt.Fprintln(t.out, v.UsersCount)
	if len(v.Unplaced) > 0 {
		fmt.Fprintf(t.out, "no free slot for %v\n", v.Unplaced)
	}
}

// RenderNotification prints a notification when it appears.
func (t *Terminal) RenderNotification(n presence.Notification, phase presence.Phase) {
	if phase != presence.Entering {
		return
	}

	hex := lo.Ternary(n.Direction == presence.Joined, lifecycle.ColorConnected, voice.ColorMicOff)
	t.println("[notice]", t.paint(n.Message(), hex))
}

func (t *Terminal) RenderPlayback(v playback.View) {
	icon := lo.Ternary(v.ShowPlayIcon, "▶", "❚❚")
	state := lo.Ternary(v.IsPlaying, "playing", "paused")
	line := fmt.Sprintf("%s %s at %.1fs", icon, state, v.Position)
	if v.IsAuthority {
		line += " (authority)"
	}

	t.println("[player]", line)
}

func (t *Terminal) RenderMic(m voice.MicView) {
	t.println("[mic]", t.paint(m.Tooltip, m.Color))
}
