package handler

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pspdems/dems-backend/internal/dems/service"
)

const csvBufferSize = 32 * 1024

// writeCSV streams a register as CSV. The report header block goes out as
// comment lines above the column row; Excel-compatible CRLF endings.
func writeCSV(w http.ResponseWriter, filename string, info service.ReportInfo, headers []string, rows [][]string) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	for _, line := range infoLines(info) {
		if err := writer.Write([]string{line}); err != nil {
			return err
		}
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// writeExcel renders a register as a single-sheet workbook.
func writeExcel(w http.ResponseWriter, filename string, info service.ReportInfo, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	f.SetSheetName(f.GetSheetName(0), sheet)

	rowIdx := 1
	for _, line := range infoLines(info) {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, line); err != nil {
			return err
		}
		rowIdx++
	}

	headerCell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return err
	}
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, headerCell, &headerRow); err != nil {
		return err
	}
	rowIdx++

	for _, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		rowIdx++
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return f.Write(w)
}

func infoLines(info service.ReportInfo) []string {
	lines := []string{
		"Plant: " + info.PlantCode + " " + info.PlantName,
		"Generated by: " + info.GeneratedBy + " at " + info.GeneratedAt,
	}
	if info.FromDate != "" || info.ToDate != "" {
		lines = append(lines, "Period: "+info.FromDate+" to "+info.ToDate)
	}
	return lines
}

func stockRegisterTable(report *service.StockRegisterReport) ([]string, [][]string) {
	headers := []string{"Medicine", "Store Stock", "Compounder Stock", "Total Stock", "Reorder Level", "Status"}
	rows := make([][]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, []string{
			r.MedicineName,
			strconv.Itoa(r.StoreStock),
			strconv.Itoa(r.CompounderStock),
			strconv.Itoa(r.TotalStock),
			strconv.Itoa(r.ReorderLevel),
			r.Status,
		})
	}
	return headers, rows
}

func indentRegisterTable(report *service.IndentRegisterReport) ([]string, [][]string) {
	headers := []string{"Indent ID", "Indent Date", "Created By", "Status", "Items", "Raised Qty", "Received Qty"}
	rows := make([][]string, 0, len(report.Rows)+1)
	for _, r := range report.Rows {
		rows = append(rows, []string{
			strconv.FormatInt(r.IndentID, 10),
			r.IndentDate,
			r.CreatedBy,
			r.Status,
			strconv.Itoa(r.ItemCount),
			strconv.Itoa(r.RaisedTotal),
			strconv.Itoa(r.ReceivedTotal),
		})
	}
	rows = append(rows, []string{
		"Total", "", "", "", "",
		strconv.Itoa(report.TotalRaised),
		strconv.Itoa(report.TotalReceived),
	})
	return headers, rows
}
