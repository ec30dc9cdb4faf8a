package account

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"coindrift/internal/domain"
)

var trackerHeader = []string{"timestamp", "market", "granularity", "action", "price", "failsafe"}

// Tracker appends executed trades to a CSV file so runs can be audited
// outside the database.
type Tracker struct {
	path string
}

func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// Record appends one trade, writing the header first when the file is new.
func (t *Tracker) Record(trade domain.Trade) error {
	info, err := os.Stat(t.path)
	writeHeader := err != nil || info.Size() == 0

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tracker file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(trackerHeader); err != nil {
			return fmt.Errorf("write tracker header: %w", err)
		}
	}
	row := []string{
		trade.Timestamp.UTC().Format(time.RFC3339),
		trade.Market,
		strconv.Itoa(trade.Granularity),
		string(trade.Action),
		strconv.FormatFloat(trade.Price, 'f', -1, 64),
		strconv.FormatBool(trade.Failsafe),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write tracker row: %w", err)
	}
	w.Flush()
	return w.Error()
}
