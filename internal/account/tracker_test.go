package account

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coindrift/internal/domain"
)

func TestTrackerWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	tracker := NewTracker(path)

	trade := domain.Trade{
		Market:      "BTC-GBP",
		Granularity: 3600,
		Action:      domain.ActionBuy,
		Price:       21400.5,
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := tracker.Record(trade); err != nil {
		t.Fatalf("first record: %v", err)
	}
	trade.Action = domain.ActionSell
	trade.Price = 22100
	trade.Failsafe = true
	if err := tracker.Record(trade); err != nil {
		t.Fatalf("second record: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open tracker: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("expected header row, got %v", rows[0])
	}
	if rows[1][3] != "BUY" || rows[2][3] != "SELL" {
		t.Errorf("unexpected actions: %v, %v", rows[1], rows[2])
	}
	if rows[2][5] != "true" {
		t.Errorf("expected failsafe flag recorded, got %v", rows[2])
	}
}
