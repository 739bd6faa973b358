package handlers

import (
	"bytes"
	"testing"

	"leadcrm/internal/models"

	"github.com/xuri/excelize/v2"
)

func TestLeadFromImportRecord(t *testing.T) {
	t.Parallel()

	col := importColumns([]string{"Company_Name", " country", "Total_Events", "key_person_email"})

	tests := []struct {
		name       string
		record     []string
		wantReason string
		check      func(t *testing.T, companyName, country, email string, totalEvents int)
	}{
		{
			name:   "full row maps by header name",
			record: []string{"Acme Conferences", "Vietnam", "7", "anna@acme.example"},
			check: func(t *testing.T, companyName, country, email string, totalEvents int) {
				if companyName != "Acme Conferences" || country != "Vietnam" || email != "anna@acme.example" {
					t.Errorf("mapped fields = %q/%q/%q", companyName, country, email)
				}
				if totalEvents != 7 {
					t.Errorf("totalEvents = %d, want 7", totalEvents)
				}
			},
		},
		{
			name:   "values are trimmed and bad numbers default to zero",
			record: []string{"  Acme  ", "", "many", ""},
			check: func(t *testing.T, companyName, country, email string, totalEvents int) {
				if companyName != "Acme" {
					t.Errorf("companyName = %q, want %q", companyName, "Acme")
				}
				if totalEvents != 0 {
					t.Errorf("totalEvents = %d, want 0", totalEvents)
				}
			},
		},
		{
			name:   "short row leaves trailing columns empty",
			record: []string{"Acme"},
			check: func(t *testing.T, companyName, country, email string, totalEvents int) {
				if country != "" || email != "" {
					t.Errorf("short row produced country=%q email=%q, want empty", country, email)
				}
			},
		},
		{
			name:       "missing company name rejects the row",
			record:     []string{"   ", "Vietnam", "3", "x@y.example"},
			wantReason: "missing company_name",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lead, reason := leadFromImportRecord(col, tt.record)
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if tt.wantReason != "" {
				return
			}
			if lead.ID == "" {
				t.Error("imported lead has no ID")
			}
			if lead.Status != models.LeadNew {
				t.Errorf("status = %q, want %q", lead.Status, models.LeadNew)
			}
			tt.check(t, lead.CompanyName, lead.Country, lead.KeyPersonEmail, lead.TotalEvents)
		})
	}
}

func TestImportColumnsMissingCompany(t *testing.T) {
	t.Parallel()

	col := importColumns([]string{"country", "industry"})
	if _, ok := col["company_name"]; ok {
		t.Fatal("company_name should be absent")
	}
}

func TestExcelLeadRows(t *testing.T) {
	t.Parallel()

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	rows := [][]interface{}{
		{"company_name", "country", "total_events"},
		{"Acme Conferences", "Vietnam", 7},
		{"Globex Events", "Singapore", 2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	got, err := excelLeadRows(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("excelLeadRows() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(got))
	}

	col := importColumns(got[0])
	lead, reason := leadFromImportRecord(col, got[1])
	if reason != "" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if lead.CompanyName != "Acme Conferences" || lead.Country != "Vietnam" || lead.TotalEvents != 7 {
		t.Errorf("lead = %s/%s/%d, want Acme Conferences/Vietnam/7", lead.CompanyName, lead.Country, lead.TotalEvents)
	}
}
