// Package export renders lookup history to CSV and Excel files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"socialscope/pkg/social"
)

var columns = []string{
	"Platform",
	"Username",
	"Full Name",
	"Followers",
	"Following",
	"Posts",
	"Likes",
	"Verified",
	"Public",
	"Business",
	"External URL",
	"Location",
	"Fetched At",
}

func row(record social.UserRecord) []string {
	return []string{
		string(record.Platform),
		record.Username,
		record.FullName,
		strconv.FormatInt(record.Followers, 10),
		strconv.FormatInt(record.Following, 10),
		strconv.FormatInt(record.PostsCount, 10),
		strconv.FormatInt(record.Likes, 10),
		strconv.FormatBool(record.IsVerified),
		strconv.FormatBool(record.IsPublic),
		strconv.FormatBool(record.IsBusiness),
		record.ExternalURL,
		record.FullLocation,
		record.FetchedAt.Format(time.RFC3339),
	}
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []social.UserRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(row(record)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", record.Username, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

const sheetName = "Profiles"

// WriteExcel writes records as a styled Excel workbook: bold frozen
// header, filterable columns, readable widths.
func WriteExcel(w io.Writer, records []social.UserRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, record := range records {
		values := row(record)
		// counters as numbers so Excel can sort and sum them
		typed := []interface{}{
			values[0], values[1], values[2],
			record.Followers, record.Following, record.PostsCount, record.Likes,
			record.IsVerified, record.IsPublic, record.IsBusiness,
			values[10], values[11], values[12],
		}
		for col, value := range typed {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "D", "J", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "K", lastCol, 28); err != nil {
		return err
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.AutoFilter(sheetName, fmt.Sprintf("A1:%s1", lastCol), nil); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
