// Command importshelters converts a municipal open-data shelter CSV into the
// YAML catalog format read by SHELTERS_FILE. Rows without usable coordinates
// are reported and skipped.
//
// Usage:
//
//	go run ./cmd/importshelters -csv data/kanazawa_shelters.csv -out data/shelters.yaml
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/zerodelay-service/internal/adapter/catalog"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
)

// columnAliases maps catalog fields to the header names seen in open-data files.
var columnAliases = map[string][]string{
	"id":        {"id", "ID", "NO", "No", "番号", "施設ID"},
	"name":      {"name", "名称", "施設名", "施設・場所名"},
	"name_kana": {"name_kana", "名称_カナ", "名称（カナ）", "施設名カナ"},
	"address":   {"address", "住所", "所在地"},
	"lat":       {"lat", "緯度"},
	"lng":       {"lng", "lon", "経度"},
	"url":       {"url", "URL", "ホームページ"},
	"tel":       {"tel", "電話番号", "TEL"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to the shelter CSV")
	outPath := flag.String("out", "", "output path for the YAML catalog")
	flag.Parse()

	if *csvPath == "" || *outPath == "" {
		flag.Usage()
		return errors.New("missing required flags: -csv, -out")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	shelters, skipped, err := parseCSV(f)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	for _, s := range skipped {
		log.Printf("skipped %s", s)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := catalog.EncodeYAML(out, shelters); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log.Printf("wrote %d shelters to %s (%d skipped)", len(shelters), *outPath, len(skipped))
	return nil
}

// parseCSV reads shelters from r. It returns the accepted shelters and a
// description of every skipped row.
func parseCSV(r io.Reader) ([]domain.Shelter, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("no data rows")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	colIdx := resolveColumns(header)
	for _, required := range []string{"name", "lat", "lng"} {
		if _, ok := colIdx[required]; !ok {
			return nil, nil, fmt.Errorf("missing %s column", required)
		}
	}

	get := func(row []string, field string) string {
		i, ok := colIdx[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var shelters []domain.Shelter //nolint:prealloc // size depends on skipped rows
	var skipped []string
	for n, row := range rows[1:] {
		line := n + 2
		lat, errLat := strconv.ParseFloat(get(row, "lat"), 64)
		lng, errLng := strconv.ParseFloat(get(row, "lng"), 64)
		if errLat != nil || errLng != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: unparsable coordinates", line))
			continue
		}
		s := domain.Shelter{
			ID:       get(row, "id"),
			Name:     get(row, "name"),
			NameKana: get(row, "name_kana"),
			Address:  get(row, "address"),
			Lat:      lat,
			Lng:      lng,
			URL:      get(row, "url"),
			Tel:      get(row, "tel"),
		}
		if !s.Position().Valid() {
			skipped = append(skipped, fmt.Sprintf("line %d: coordinates out of range", line))
			continue
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("shelter-%d", line-1)
		}
		shelters = append(shelters, s)
	}
	return shelters, skipped, nil
}

func resolveColumns(header []string) map[string]int {
	idx := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		for i, h := range header {
			h = strings.TrimSpace(h)
			for _, a := range aliases {
				if strings.EqualFold(h, a) {
					if _, seen := idx[field]; !seen {
						idx[field] = i
					}
				}
			}
		}
	}
	return idx
}
