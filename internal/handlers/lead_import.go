package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadcrm/internal/database"
	"leadcrm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var errNoCompanyColumn = errors.New("file must have a company_name column")

// importColumns maps lowercased, trimmed header names to their positions
func importColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

// leadFromImportRecord builds a lead from one data row. The second
// return value is a non-empty reason when the row cannot be imported.
func leadFromImportRecord(col map[string]int, record []string) (models.Lead, string) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	company := field("company_name")
	if company == "" {
		return models.Lead{}, "missing company_name"
	}

	totalEvents, _ := strconv.Atoi(field("total_events"))
	vietnamEvents, _ := strconv.Atoi(field("vietnam_events"))

	now := time.Now()
	return models.Lead{
		ID:             uuid.NewString(),
		CompanyName:    company,
		Industry:       field("industry"),
		Country:        field("country"),
		City:           field("city"),
		Website:        field("website"),
		KeyPersonName:  field("key_person_name"),
		KeyPersonTitle: field("key_person_title"),
		KeyPersonEmail: field("key_person_email"),
		KeyPersonPhone: field("key_person_phone"),
		TotalEvents:    totalEvents,
		VietnamEvents:  vietnamEvents,
		Status:         models.LeadNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, ""
}

// importLeadRows drives rows from any tabular source through the lead
// mapper and inserts the valid ones. next returns io.EOF when the
// source is exhausted; a bad row is skipped, not fatal.
func importLeadRows(db *gorm.DB, header []string, next func() ([]string, error)) (imported, skipped int, rowErrors []string, err error) {
	col := importColumns(header)
	if _, ok := col["company_name"]; !ok {
		return 0, 0, nil, errNoCompanyColumn
	}

	for line := 2; ; line++ {
		record, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			rowErrors = append(rowErrors, "line "+strconv.Itoa(line)+": malformed row")
			continue
		}

		lead, reason := leadFromImportRecord(col, record)
		if reason != "" {
			skipped++
			rowErrors = append(rowErrors, "line "+strconv.Itoa(line)+": "+reason)
			continue
		}
		if err := db.Create(&lead).Error; err != nil {
			skipped++
			rowErrors = append(rowErrors, "line "+strconv.Itoa(line)+": "+err.Error())
			continue
		}
		imported++
	}
	return imported, skipped, rowErrors, nil
}

// ImportLeadsCSV bulk-imports leads from an uploaded CSV file. Columns
// are matched by header name; company_name is the only required one.
func ImportLeadsCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		handleError(c, http.StatusBadRequest, "No CSV file provided", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to read CSV file", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to read CSV header", err)
		return
	}

	imported, skipped, rowErrors, err := importLeadRows(database.GetDB(), header, reader.Read)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
		"errors":   rowErrors,
	})
}

// ImportLeadsExcel bulk-imports leads from an uploaded .xlsx workbook.
// The first sheet is read with the same header-name mapping as the CSV
// import, so exports from either format load the same way.
func ImportLeadsExcel(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		handleError(c, http.StatusBadRequest, "No Excel file provided", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to read Excel file", err)
		return
	}
	defer file.Close()

	rows, err := excelLeadRows(file)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to parse Excel file", err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Excel sheet is empty"})
		return
	}

	i := 1
	next := func() ([]string, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		row := rows[i]
		i++
		return row, nil
	}

	imported, skipped, rowErrors, err := importLeadRows(database.GetDB(), rows[0], next)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
		"errors":   rowErrors,
	})
}

// excelLeadRows returns the rows of the first sheet of an xlsx workbook
func excelLeadRows(r io.Reader) ([][]string, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return workbook.GetRows(sheet)
}
