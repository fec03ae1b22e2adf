package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type RoomInfo struct {
	RoomID    string
	ServerURL string
}

func NewRoomInfo(roomID, serverURL string) *RoomInfo {
	return &RoomInfo{
		RoomID:    roomID,
		ServerURL: serverURL,
	}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:  %s\n%s Join:     %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconReceive, MutedStyle.Render(JoinCommand(r.RoomID, r.ServerURL)),
	)

	return boxStyle.Render(content)
}

func RenderRoomInfo(roomID, serverURL string) {
	fmt.Println(NewRoomInfo(roomID, serverURL).View())
}

// JoinCommand is the command line a receiver runs to join roomID.
func JoinCommand(roomID, serverURL string) string {
	if serverURL == "" {
		return "sdprelay receive " + roomID
	}
	return fmt.Sprintf("sdprelay receive --server %s %s", serverURL, roomID)
}

type SessionSummary struct {
	Role     string
	RoomID   string
	Sent     string
	Received string
	Duration time.Duration
}

func SessionSummaryView(summary SessionSummary) string {
	rows := [][]string{
		{"Role", summary.Role},
		{"Room", summary.RoomID},
	}
	if summary.Sent != "" {
		rows = append(rows, []string{"Sent", summary.Sent})
	}
	if summary.Received != "" {
		rows = append(rows, []string{"Received", summary.Received})
	}
	if summary.Duration > 0 {
		rows = append(rows, []string{"Round trip", summary.Duration.Round(time.Millisecond).String()})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderSessionSummary(summary SessionSummary) {
	fmt.Println(SessionSummaryView(summary))
}

// RelayStats mirrors the relay's /stats document.
type RelayStats struct {
	Rooms         int     `json:"rooms"`
	Connections   int     `json:"connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// StatsView renders relay stats as a plain table that survives being piped.
func StatsView(server string, s RelayStats) string {
	t := pretty.NewWriter()
	t.SetStyle(pretty.StyleRounded)
	t.SetTitle("Relay " + server)
	t.AppendHeader(pretty.Row{"Metric", "Value"})
	t.AppendRows([]pretty.Row{
		{"Rooms", strconv.Itoa(s.Rooms)},
		{"Connections", strconv.Itoa(s.Connections)},
		{"Uptime", (time.Duration(s.UptimeSeconds) * time.Second).String()},
	})
	t.SetColumnConfigs([]pretty.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t.Render()
}
