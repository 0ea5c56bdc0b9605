package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/liquideth/vaultstat/internal/snapshot"
)

// walletReportHeader is the column order of both report formats.
var walletReportHeader = []string{
	"full_address", "blockchain", "token_symbol",
	"token_balance", "usd_value", "date",
}

// WalletCSV renders wallet snapshot rows as a CSV document.
func WalletCSV(rows []snapshot.WalletRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(walletReportHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.FullAddress,
			row.Blockchain,
			row.TokenSymbol,
			row.TokenBalance.String(),
			row.USDValue.String(),
			row.Date,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WalletXLSX renders wallet snapshot rows as an xlsx workbook with a single
// "Balances" sheet. Balances and values are written as numbers so the
// spreadsheet can aggregate them.
func WalletXLSX(rows []snapshot.WalletRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Balances"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for col, name := range walletReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("resolving header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, row := range rows {
		balance, _ := row.TokenBalance.Float64()
		value, _ := row.USDValue.Float64()
		cells := []any{
			row.FullAddress,
			row.Blockchain,
			row.TokenSymbol,
			balance,
			value,
			row.Date,
		}
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("resolving cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
