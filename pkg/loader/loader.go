package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/mercury/internal/models"
)

// LoadFile reads (source, summary) pairs from a dataset file, dispatching on
// the extension: .jsonl (one object per line), .json (array of objects) or
// .csv (header row with source and summary columns).
func LoadFile(path string) ([]models.DocumentPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return LoadJSONL(f)
	case ".json":
		return LoadJSON(f)
	case ".csv":
		return LoadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
	}
}

// LoadJSONL reads one {"source": ..., "summary": ...} object per line.
// Blank lines are skipped.
func LoadJSONL(r io.Reader) ([]models.DocumentPair, error) {
	var pairs []models.DocumentPair

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var pair models.DocumentPair
		if err := json.Unmarshal([]byte(text), &pair); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// LoadJSON reads a JSON array of {"source": ..., "summary": ...} objects.
func LoadJSON(r io.Reader) ([]models.DocumentPair, error) {
	var pairs []models.DocumentPair
	if err := json.NewDecoder(r).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return pairs, nil
}

// LoadCSV reads a CSV file whose header row names source and summary
// columns, in any order.
func LoadCSV(r io.Reader) ([]models.DocumentPair, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	sourceCol, summaryCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "source":
			sourceCol = i
		case "summary":
			summaryCol = i
		}
	}
	if sourceCol < 0 || summaryCol < 0 {
		return nil, fmt.Errorf("CSV header must contain source and summary columns, got %v", header)
	}

	var pairs []models.DocumentPair
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, models.DocumentPair{
			Source:  record[sourceCol],
			Summary: record[summaryCol],
		})
	}
	return pairs, nil
}
