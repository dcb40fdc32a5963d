package maintenance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"tripkit/pkg/db"
	"tripkit/pkg/model"
	"tripkit/pkg/store"
)

const destinationsCSVStateKey = "destinations_csv_mtime"

// Run executes all maintenance tasks: CSV import and pruning.
// It blocks until completion.
func Run(ctx context.Context, s store.Store, d *db.DB, csvPath string, sessionTTL time.Duration) error {
	slog.Info("Starting database maintenance...")

	if err := importDestinations(ctx, s, csvPath); err != nil {
		slog.Error("Destination import failed", "error", err)
		// Startup continues without the custom catalog rows.
	} else {
		slog.Info("Destination import check completed")
	}

	if err := d.PruneCache(30 * 24 * time.Hour); err != nil {
		slog.Error("Cache pruning failed", "error", err)
	} else {
		slog.Info("Cache pruning completed")
	}

	if err := d.PruneSessions(sessionTTL); err != nil {
		slog.Error("Session pruning failed", "error", err)
	} else {
		slog.Info("Session pruning completed")
	}

	return nil
}

// importDestinations imports user-supplied destinations from a CSV file,
// conditional on modification time. Rows extend the seeded catalog; IDs that
// collide with existing rows replace them.
func importDestinations(ctx context.Context, s store.Store, csvPath string) error {
	info, err := os.Stat(csvPath)
	if os.IsNotExist(err) {
		return nil // File doesn't exist, nothing to import
	}
	if err != nil {
		return fmt.Errorf("failed to stat csv: %w", err)
	}

	fileMTime := info.ModTime().UTC().Format(time.RFC3339)

	// Check stored state
	storedMTime, found := s.GetState(ctx, destinationsCSVStateKey)
	if found && storedMTime == fileMTime {
		return nil // Up to date
	}

	slog.Info("Importing destinations from CSV...", "path", csvPath)

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	// Headers: ID,Name,Locality,Country,Description,Photogenic,Safety,Tags,Vibes
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	// Handle potential BOM (Byte Order Mark) at start of file
	if len(headers) > 0 {
		if len(headers[0]) >= 3 && headers[0][:3] == "\xef\xbb\xbf" {
			headers[0] = headers[0][3:]
		}
	}

	// Map headers to indices
	idxMap := make(map[string]int)
	for i, h := range headers {
		idxMap[h] = i
	}

	count, err := processRows(ctx, s, reader, idxMap)
	if err != nil {
		return err
	}

	slog.Info("Imported destinations", "count", count)

	// Update State
	if err := s.SetState(ctx, destinationsCSVStateKey, fileMTime); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	return nil
}

func processRows(ctx context.Context, s store.Store, reader *csv.Reader, idxMap map[string]int) (int, error) {
	get := func(row []string, col string) string {
		if i, ok := idxMap[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("csv read error: %w", err)
		}

		d := &model.Destination{
			ID:          get(record, "ID"),
			Name:        get(record, "Name"),
			Locality:    get(record, "Locality"),
			Country:     get(record, "Country"),
			Description: get(record, "Description"),
		}
		if d.ID == "" || d.Name == "" {
			continue
		}

		if n, err := strconv.Atoi(get(record, "Photogenic")); err == nil {
			d.Photogenic = n
		}
		if n, err := strconv.Atoi(get(record, "Safety")); err == nil {
			d.Safety = n
		}
		d.Tags = splitList(get(record, "Tags"))
		d.Vibes = splitList(get(record, "Vibes"))

		if err := s.SaveDestination(ctx, d); err != nil {
			return count, fmt.Errorf("failed to save row %d: %w", count, err)
		}
		count++
	}
	return count, nil
}

// splitList parses a semicolon-separated cell into a string slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
