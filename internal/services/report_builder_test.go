package services

import (
	"bytes"
	"leadcrm/internal/models"
	"strings"
	"testing"
)

func sampleStats() *ReportStats {
	return &ReportStats{
		LeadsTotal:           42,
		LeadsContacted:       12,
		LeadsQualified:       5,
		NewInPeriod:          7,
		ByStatus:             []CountRow{{Label: "New", Count: 20}, {Label: "Contacted", Count: 12}},
		ByCountry:            []CountRow{{Label: "Vietnam", Count: 15}, {Label: "Singapore", Count: 8}},
		EmailsSent:           120,
		EmailsSentInPeriod:   18,
		Replies:              30,
		RepliesInPeriod:      4,
		ReplyRate:            25.0,
		UniqueLeadsContacted: 25,
		EmailsByDay:          []DayCount{{Day: "2026-03-09", Count: 10}, {Day: "2026-03-10", Count: 8}},
		TopLeads: []TopLead{
			{ID: "l1", CompanyName: "Acme Conferences", LeadScore: 92, Status: "Qualified", Country: "Vietnam", Industry: "Events", KeyPersonName: "Tran Minh"},
			{ID: "l2", CompanyName: "Globex Events", LeadScore: 80, Status: "Contacted", Country: "Singapore", Industry: "Tech", KeyPersonName: "Lee Wong"},
		},
	}
}

func sampleTemplateData(stats *ReportStats) reportTemplateData {
	return reportTemplateData{
		RecipientName:  "Manager",
		PeriodLabel:    "This Week",
		PeriodRange:    "09/03/2026 - 15/03/2026",
		GeneratedAt:    "12/03/2026 09:00",
		IncludeStats:   true,
		IncludeLeads:   true,
		IncludeEmails:  true,
		IncludeTop:     true,
		Stats:          stats,
		TopLeadsLength: len(stats.TopLeads),
	}
}

func TestReportTemplateRendersAllSections(t *testing.T) {
	t.Parallel()
	data := sampleTemplateData(sampleStats())

	var buf bytes.Buffer
	if err := reportHTMLTemplate.Execute(&buf, data); err != nil {
		t.Fatalf("template execution failed: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Hello <strong>Manager</strong>",
		"Acme Conferences",
		"Top 2 Leads by Score",
		"2026-03-09",
		"Vietnam",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}

	// Ranks are 1-based.
	if !strings.Contains(html, "<td>1</td><td><strong>Acme Conferences</strong></td>") {
		t.Error("top lead ranking should start at 1")
	}
}

func TestReportTemplateOmitsDisabledSections(t *testing.T) {
	t.Parallel()
	data := sampleTemplateData(sampleStats())
	data.IncludeTop = false
	data.IncludeLeads = false

	var buf bytes.Buffer
	if err := reportHTMLTemplate.Execute(&buf, data); err != nil {
		t.Fatalf("template execution failed: %v", err)
	}
	html := buf.String()

	if strings.Contains(html, "Leads by Score") {
		t.Error("top leads section should be omitted when disabled")
	}
	if strings.Contains(html, "New Leads This Week") {
		t.Error("new leads section should be omitted when disabled")
	}
	if !strings.Contains(html, "Email Activity") {
		t.Error("enabled sections must still render")
	}
}

func TestBuildTextReport(t *testing.T) {
	t.Parallel()
	data := sampleTemplateData(sampleStats())

	text := buildTextReport(data)

	for _, want := range []string{
		"CRM REPORT - THIS WEEK",
		"Total leads: 42",
		"Reply rate: 25.0%",
		"1. Acme Conferences - Score: 92",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q", want)
		}
	}

	data.IncludeStats = false
	data.IncludeEmails = false
	data.IncludeTop = false
	data.IncludeLeads = false
	text = buildTextReport(data)
	if strings.Contains(text, "OVERVIEW") || strings.Contains(text, "TOP") {
		t.Error("disabled sections must be absent from the text report")
	}
}

func TestPeriodLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		frequency models.ReportFrequency
		want      string
	}{
		{models.ReportDaily, "Today"},
		{models.ReportWeekly, "This Week"},
		{models.ReportMonthly, "This Month"},
	}
	for _, tt := range tests {
		if got := periodLabel(tt.frequency); got != tt.want {
			t.Errorf("periodLabel(%s) = %q, want %q", tt.frequency, got, tt.want)
		}
	}
}
