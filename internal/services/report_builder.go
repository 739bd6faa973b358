package services

import (
	"bytes"
	"fmt"
	"html/template"
	"leadcrm/internal/models"
	"strings"
	"time"
)

// ReportEmail is a fully composed manager report ready to hand to the
// sender. Summary is a compact digest persisted with the delivery log.
type ReportEmail struct {
	Subject     string
	Text        string
	HTML        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Summary     map[string]interface{}
}

// ManagerReportBuilder assembles report emails from aggregate statistics
// according to a subscription's inclusion flags. It either produces a
// complete report or fails; partial reports are never sent.
type ManagerReportBuilder struct {
	stats *ReportStatsService
}

func NewManagerReportBuilder(stats *ReportStatsService) *ManagerReportBuilder {
	return &ManagerReportBuilder{stats: stats}
}

func periodLabel(frequency models.ReportFrequency) string {
	switch frequency {
	case models.ReportWeekly:
		return "This Week"
	case models.ReportMonthly:
		return "This Month"
	default:
		return "Today"
	}
}

type reportTemplateData struct {
	RecipientName  string
	PeriodLabel    string
	PeriodRange    string
	GeneratedAt    string
	IncludeStats   bool
	IncludeLeads   bool
	IncludeEmails  bool
	IncludeTop     bool
	Stats          *ReportStats
	TopLeadsLength int
}

var reportHTMLTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"rank": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 800px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #C5A059 0%, #0F172A 100%); color: white; padding: 30px; border-radius: 8px 8px 0 0; }
    .header h1 { margin: 0; font-size: 24px; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px; }
    .section { background: white; margin-bottom: 20px; padding: 20px; border-radius: 8px; }
    .section h2 { color: #0F172A; margin-top: 0; border-bottom: 2px solid #C5A059; padding-bottom: 10px; }
    .stat-value { font-size: 28px; font-weight: bold; color: #C5A059; }
    .table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    .table th, .table td { padding: 10px; text-align: left; border-bottom: 1px solid #ddd; }
    .table th { background: #0F172A; color: white; }
    .footer { text-align: center; margin-top: 30px; color: #666; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>CRM Report</h1>
      <p>{{.PeriodLabel}} ({{.PeriodRange}})</p>
    </div>
    <div class="content">
      <p>Hello <strong>{{.RecipientName}}</strong>,</p>
      <p>This is your automated CRM activity report for {{.PeriodLabel}}.</p>
{{- if .IncludeStats}}
      <div class="section">
        <h2>Overview</h2>
        <table class="table">
          <tr><td>Total leads</td><td class="stat-value">{{.Stats.LeadsTotal}}</td></tr>
          <tr><td>New leads {{.PeriodLabel}}</td><td class="stat-value">{{.Stats.NewInPeriod}}</td></tr>
          <tr><td>Contacted</td><td class="stat-value">{{.Stats.LeadsContacted}}</td></tr>
          <tr><td>Qualified</td><td class="stat-value">{{.Stats.LeadsQualified}}</td></tr>
          <tr><td>Emails sent {{.PeriodLabel}}</td><td class="stat-value">{{.Stats.EmailsSentInPeriod}}</td></tr>
          <tr><td>Replies {{.PeriodLabel}}</td><td class="stat-value">{{.Stats.RepliesInPeriod}}</td></tr>
          <tr><td>Reply rate</td><td class="stat-value">{{.Stats.ReplyRate}}%</td></tr>
        </table>
      </div>
{{- end}}
{{- if .IncludeEmails}}
      <div class="section">
        <h2>Email Activity</h2>
        <p>Total emails sent: <strong>{{.Stats.EmailsSent}}</strong></p>
        <p>Emails sent {{.PeriodLabel}}: <strong>{{.Stats.EmailsSentInPeriod}}</strong></p>
        <p>Total replies: <strong>{{.Stats.Replies}}</strong></p>
        <p>Leads contacted: <strong>{{.Stats.UniqueLeadsContacted}}</strong></p>
{{- if .Stats.EmailsByDay}}
        <table class="table">
          <thead><tr><th>Date</th><th>Emails Sent</th></tr></thead>
          <tbody>
{{- range .Stats.EmailsByDay}}
            <tr><td>{{.Day}}</td><td>{{.Count}}</td></tr>
{{- end}}
          </tbody>
        </table>
{{- end}}
      </div>
{{- end}}
{{- if .IncludeLeads}}
      <div class="section">
        <h2>New Leads {{.PeriodLabel}}</h2>
        <p><strong>{{.Stats.NewInPeriod}}</strong> new leads were added {{.PeriodLabel}}.</p>
        <h3>By status</h3>
        <table class="table">
          <thead><tr><th>Status</th><th>Count</th></tr></thead>
          <tbody>
{{- range .Stats.ByStatus}}
            <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{- end}}
          </tbody>
        </table>
{{- if .Stats.ByCountry}}
        <h3>Top countries</h3>
        <table class="table">
          <thead><tr><th>Country</th><th>Leads</th></tr></thead>
          <tbody>
{{- range .Stats.ByCountry}}
            <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{- end}}
          </tbody>
        </table>
{{- end}}
      </div>
{{- end}}
{{- if .IncludeTop}}
      <div class="section">
        <h2>Top {{.TopLeadsLength}} Leads by Score</h2>
        <table class="table">
          <thead><tr><th>#</th><th>Company</th><th>Score</th><th>Status</th><th>Country</th><th>Industry</th><th>Key Person</th></tr></thead>
          <tbody>
{{- range $i, $lead := .Stats.TopLeads}}
            <tr><td>{{rank $i}}</td><td><strong>{{$lead.CompanyName}}</strong></td><td>{{$lead.LeadScore}}</td><td>{{$lead.Status}}</td><td>{{$lead.Country}}</td><td>{{$lead.Industry}}</td><td>{{$lead.KeyPersonName}}</td></tr>
{{- end}}
          </tbody>
        </table>
      </div>
{{- end}}
      <div class="footer">
        <p>This report was generated automatically by the CRM.</p>
        <p>Generated at: {{.GeneratedAt}}</p>
      </div>
    </div>
  </div>
</body>
</html>
`))

// Build assembles the report for one subscription at the given local time.
func (b *ManagerReportBuilder) Build(sub *models.ReportSubscription, now time.Time) (*ReportEmail, error) {
	start, end := periodBoundaries(sub.Frequency, now)

	stats, err := b.stats.GenerateStats(start, end, sub.Frequency, sub.TopLeadsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report stats: %w", err)
	}

	recipientName := sub.RecipientName
	if recipientName == "" {
		recipientName = "Manager"
	}

	label := periodLabel(sub.Frequency)
	periodRange := fmt.Sprintf("%s - %s", start.Format("02/01/2006"), end.Format("02/01/2006"))

	data := reportTemplateData{
		RecipientName:  recipientName,
		PeriodLabel:    label,
		PeriodRange:    periodRange,
		GeneratedAt:    now.Format("02/01/2006 15:04"),
		IncludeStats:   sub.IncludeStats,
		IncludeLeads:   sub.IncludeNewLeads,
		IncludeEmails:  sub.IncludeEmailActivity,
		IncludeTop:     sub.IncludeTopLeads && len(stats.TopLeads) > 0,
		Stats:          stats,
		TopLeadsLength: len(stats.TopLeads),
	}

	var htmlBuf bytes.Buffer
	if err := reportHTMLTemplate.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render report template: %w", err)
	}

	return &ReportEmail{
		Subject:     fmt.Sprintf("CRM Report %s - %s", label, periodRange),
		Text:        buildTextReport(data),
		HTML:        htmlBuf.String(),
		PeriodStart: start,
		PeriodEnd:   end,
		Summary: map[string]interface{}{
			"leadsTotal":      stats.LeadsTotal,
			"leadsNew":        stats.NewInPeriod,
			"emailsSent":      stats.EmailsSentInPeriod,
			"repliesReceived": stats.RepliesInPeriod,
			"replyRate":       stats.ReplyRate,
		},
	}, nil
}

// buildTextReport renders the plain-text alternative body.
func buildTextReport(data reportTemplateData) string {
	var b strings.Builder
	stats := data.Stats

	fmt.Fprintf(&b, "CRM REPORT - %s (%s)\n\n", strings.ToUpper(data.PeriodLabel), data.PeriodRange)
	fmt.Fprintf(&b, "Hello %s,\n\nThis is your automated CRM activity report.\n", data.RecipientName)

	if data.IncludeStats {
		b.WriteString("\nOVERVIEW:\n")
		fmt.Fprintf(&b, "- Total leads: %d\n", stats.LeadsTotal)
		fmt.Fprintf(&b, "- New leads %s: %d\n", data.PeriodLabel, stats.NewInPeriod)
		fmt.Fprintf(&b, "- Contacted: %d\n", stats.LeadsContacted)
		fmt.Fprintf(&b, "- Qualified: %d\n", stats.LeadsQualified)
	}

	if data.IncludeEmails {
		b.WriteString("\nEMAIL ACTIVITY:\n")
		fmt.Fprintf(&b, "- Total emails sent: %d\n", stats.EmailsSent)
		fmt.Fprintf(&b, "- Emails sent %s: %d\n", data.PeriodLabel, stats.EmailsSentInPeriod)
		fmt.Fprintf(&b, "- Total replies: %d\n", stats.Replies)
		fmt.Fprintf(&b, "- Replies %s: %d\n", data.PeriodLabel, stats.RepliesInPeriod)
		fmt.Fprintf(&b, "- Reply rate: %.1f%%\n", stats.ReplyRate)
		fmt.Fprintf(&b, "- Leads contacted: %d\n", stats.UniqueLeadsContacted)
	}

	if data.IncludeLeads {
		fmt.Fprintf(&b, "\nNEW LEADS %s: %d\n", strings.ToUpper(data.PeriodLabel), stats.NewInPeriod)
	}

	if data.IncludeTop {
		fmt.Fprintf(&b, "\nTOP %d LEADS BY SCORE:\n", data.TopLeadsLength)
		for i, lead := range stats.TopLeads {
			fmt.Fprintf(&b, "%d. %s - Score: %d - %s - %s\n", i+1, lead.CompanyName, lead.LeadScore, lead.Status, lead.Country)
		}
	}

	fmt.Fprintf(&b, "\n---\nThis report was generated automatically by the CRM.\nGenerated at: %s\n", data.GeneratedAt)
	return b.String()
}
