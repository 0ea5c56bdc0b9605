package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/liquideth/vaultstat/internal/snapshot"
)

func sampleRows() []snapshot.WalletRow {
	ts := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	return []snapshot.WalletRow{
		{
			FullAddress:  "0x1111111111111111111111111111111111111111",
			Blockchain:   "Ethereum",
			TokenSymbol:  "WETH",
			TokenBalance: decimal.NewFromFloat(2.1),
			USDValue:     decimal.NewFromInt(6300),
			Date:         "28-08-2026",
			Timestamp:    ts,
		},
		{
			FullAddress:  "0x2222222222222222222222222222222222222222",
			Blockchain:   "Base",
			TokenSymbol:  "USDC",
			TokenBalance: decimal.NewFromInt(6000),
			USDValue:     decimal.NewFromInt(6000),
			Date:         "28-08-2026",
			Timestamp:    ts,
		},
	}
}

func TestWalletCSV(t *testing.T) {
	data, err := WalletCSV(sampleRows())
	if err != nil {
		t.Fatalf("WalletCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if lines[0] != "full_address,blockchain,token_symbol,token_balance,usd_value,date" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "WETH") || !strings.Contains(lines[1], "2.1") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "28-08-2026") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestWalletCSVEmpty(t *testing.T) {
	data, err := WalletCSV(nil)
	if err != nil {
		t.Fatalf("WalletCSV: %v", err)
	}
	if strings.TrimSpace(string(data)) != "full_address,blockchain,token_symbol,token_balance,usd_value,date" {
		t.Errorf("empty export must still carry the header, got %q", data)
	}
}

func TestWalletXLSX(t *testing.T) {
	data, err := WalletXLSX(sampleRows())
	if err != nil {
		t.Fatalf("WalletXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Balances")
	if err != nil {
		t.Fatalf("reading Balances sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "full_address" {
		t.Errorf("header cell = %q", rows[0][0])
	}
	if rows[1][2] != "WETH" {
		t.Errorf("token cell = %q", rows[1][2])
	}
	if rows[2][1] != "Base" {
		t.Errorf("chain cell = %q", rows[2][1])
	}
}
