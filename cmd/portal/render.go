package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/assistant"
	"github.com/hugh/tarviz/internal/authflow"
)

const (
	columnWidth = 34
	shortIDLen  = 8
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
)

// Terminal colours for each column's border, keyed by status.
var columnColors = map[string]lipgloss.Color{
	"backlog":   lipgloss.Color("250"),
	"writing":   lipgloss.Color("75"),
	"design":    lipgloss.Color("141"),
	"review":    lipgloss.Color("220"),
	"approval":  lipgloss.Color("208"),
	"scheduled": lipgloss.Color("42"),
	"posted":    lipgloss.Color("238"),
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func renderPost(p dto.PostDTO) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(shortID(p.ID) + " · " + p.Platform))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("due " + p.DueDate.Format("02 Jan 2006")))
	if p.Caption != "" {
		b.WriteString("\n")
		b.WriteString(p.Caption)
	}
	return b.String()
}

func renderColumn(col dto.ColumnDTO, width int) string {
	color, ok := columnColors[col.ID]
	if !ok {
		color = lipgloss.Color("7")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(fmt.Sprintf("%s (%d)", col.Label, len(col.Posts)))

	body := mutedStyle.Render("No posts")
	if !col.Empty {
		cards := make([]string, len(col.Posts))
		for i, p := range col.Posts {
			cards[i] = renderPost(p)
		}
		body = strings.Join(cards, "\n\n")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(width).
		Render(header + "\n\n" + body)
}

// renderBoard stacks the columns, or lays them side by side when wide.
func renderBoard(board *dto.BoardResponse, wide bool) string {
	rendered := make([]string, len(board.Columns))
	for i, col := range board.Columns {
		rendered[i] = renderColumn(col, columnWidth)
	}
	if wide {
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func renderRevisions(notes []dto.RevisionDTO) string {
	if len(notes) == 0 {
		return mutedStyle.Render("No revision requests.")
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = fmt.Sprintf("%s  %s", mutedStyle.Render(n.CreatedAt.Format("02 Jan 15:04")), n.Feedback)
	}
	return strings.Join(lines, "\n")
}

// formatINR groups rupees the Indian way: ₹12,34,567.
func formatINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	digits := fmt.Sprint(amount)
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}

var invoiceStatusColors = map[string]lipgloss.Color{
	"Paid":    lipgloss.Color("10"),
	"Pending": lipgloss.Color("11"),
	"Overdue": lipgloss.Color("9"),
}

func renderInvoices(invoices []dto.InvoiceDTO) string {
	if len(invoices) == 0 {
		return mutedStyle.Render("No invoices yet.")
	}

	rows := make([][]string, len(invoices))
	for i, inv := range invoices {
		status := lipgloss.NewStyle().Foreground(invoiceStatusColors[inv.Status]).Render(inv.Status)
		rows[i] = []string{inv.ID, inv.Date, inv.Service, formatINR(inv.Amount), status}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Invoice ID", "Date", "Service", "Amount", "Status").
		Rows(rows...).
		String()
}

func renderSubscriptions(subs []dto.SubscriptionDTO) string {
	if len(subs) == 0 {
		return mutedStyle.Render("No active plans.")
	}

	cards := make([]string, len(subs))
	for i, sub := range subs {
		color := lipgloss.Color("10")
		if sub.Status != "Active" {
			color = lipgloss.Color("8")
		}
		body := mutedStyle.Render("Current Plan") + "\n" +
			titleStyle.Render(sub.PackageName) + "  " +
			lipgloss.NewStyle().Foreground(color).Render(sub.Status) + "\n" +
			mutedStyle.Render("Renews on "+sub.RenewalDate)
		cards[i] = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Padding(0, 1).
			Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderAudit(res *assistant.AuditResult) string {
	scoreColor := lipgloss.Color("10")
	switch {
	case res.Score < 50:
		scoreColor = lipgloss.Color("9")
	case res.Score < 80:
		scoreColor = lipgloss.Color("11")
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(scoreColor).Render(fmt.Sprintf("SEO score: %d/100", res.Score)))
	b.WriteString("\n\n")
	b.WriteString(res.Summary)
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Strengths"))
	for _, s := range res.Strengths {
		b.WriteString("\n  + " + s)
	}
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Weaknesses"))
	for _, w := range res.Weaknesses {
		b.WriteString("\n  - " + w)
	}
	return b.String()
}

// renderMarkdown falls back to the raw text if glamour cannot render it.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// renderStatus is the inline status line under a form.
func renderStatus(s authflow.Snapshot) string {
	switch {
	case s.Request.Error != "":
		return errorStyle.Render(s.Request.Error)
	case s.Request.Success != "":
		return successStyle.Render(s.Request.Success)
	}
	return ""
}
