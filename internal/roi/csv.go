package roi

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// csvHeader фиксированный порядок колонок журнала пересечений
var csvHeader = []string{"timestamp", "track_id", "vehicle_type", "direction", "line_type"}

// Формат меток времени с миллисекундной точностью
const timestampLayout = "2006-01-02 15:04:05.000"

// WriteCSV записывает объединенный журнал пересечений в формате CSV.
// Записи обоих журналов упорядочиваются по времени
func (c *Counter) WriteCSV(w io.Writer) error {
	entries, exits := c.Logs()
	events := make([]CrossingEvent, 0, len(entries)+len(exits))
	events = append(events, entries...)
	events = append(events, exits...)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, event := range events {
		record := []string{
			event.Timestamp.Format(timestampLayout),
			strconv.Itoa(event.TrackID),
			string(event.VehicleType),
			string(event.Direction),
			string(event.LineType),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// SaveCSV сохраняет журнал пересечений в файл
func (c *Counter) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer file.Close()

	if err := c.WriteCSV(file); err != nil {
		return err
	}
	return file.Sync()
}
