package ui

import (
	"io"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"softpos/internal/checkout"
	"softpos/internal/journal"
)

// Status colors
var (
	Success = lipgloss.Color("#10B981") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	Muted   = lipgloss.Color("#6B7280")
)

// Styles are bound to one writer so color is only emitted for terminals
type Styles struct {
	renderer *lipgloss.Renderer
	status   map[string]lipgloss.Style
	header   lipgloss.Style
	border   lipgloss.Style
}

// NewStyles creates styles for output written to w
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		renderer: r,
		status: map[string]lipgloss.Style{
			string(checkout.StatusApproved):           r.NewStyle().Bold(true).Foreground(Success),
			string(checkout.StatusDeclined):           r.NewStyle().Bold(true).Foreground(Error),
			string(checkout.StatusFailed):             r.NewStyle().Bold(true).Foreground(Error),
			string(checkout.StatusActivationRequired): r.NewStyle().Bold(true).Foreground(Warning),
			string(checkout.StatusDeviceSelected):     r.NewStyle().Bold(true).Foreground(Warning),
		},
		header: r.NewStyle().Bold(true).Padding(0, 1),
		border: r.NewStyle().Foreground(Muted),
	}
}

// Status renders a checkout status in its color
func (s *Styles) Status(status string) string {
	style, ok := s.status[status]
	if !ok {
		return status
	}
	return style.Render(status)
}

// HistoryTable renders journal entries, newest first
func (s *Styles) HistoryTable(entries []journal.Entry) string {
	cell := s.renderer.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		amount := e.Amount
		if amount != "" && e.Currency != "" {
			amount += " " + e.Currency
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.ReferenceID,
			s.Status(e.Status),
			amount,
			e.TransactionID,
			TruncateText(e.Message, 40),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		Headers("TIME", "REFERENCE", "STATUS", "AMOUNT", "TRANSACTION", "MESSAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return cell
		})
	return t.String()
}

var writeClipboard = clipboard.WriteAll

// CopyToClipboard places text on the system clipboard
func CopyToClipboard(text string) error {
	return writeClipboard(text)
}
