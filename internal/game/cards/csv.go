package cards

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column positions in the card export CSV.
const (
	colName       = 0
	colPower      = 4
	colToughness  = 5
	colTypes      = 10
	colSubtypes   = 11
	colSupertypes = 12
	colManaCosts  = 13
	colRules      = 14
	minColumns    = 15
)

// ParseKeywords finds the modeled keyword abilities in rules text. Keywords
// are recognized at the start of a line or in a comma-separated keyword
// line, so reminder text and other abilities do not match.
func ParseKeywords(text string) KeywordMask {
	var mask KeywordMask
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			for _, kn := range keywordNames {
				if len(part) < len(kn.name) || !strings.EqualFold(part[:len(kn.name)], kn.name) {
					continue
				}
				rest := part[len(kn.name):]
				if rest == "" || rest[0] == ' ' || rest[0] == '(' {
					mask |= kn.mask
				}
			}
		}
	}
	return mask
}

func parseStat(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// LoadCSV reads card definitions from a card export. The first row is a
// header. Rows that are too short or carry a type the engine does not know
// are skipped and counted.
func LoadCSV(r io.Reader) ([]Card, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, 0, nil
	}

	out := make([]Card, 0, len(records)-1)
	skipped := 0
	for _, record := range records[1:] {
		if len(record) < minColumns {
			skipped++
			continue
		}
		types, err := ParseTypes(record[colSupertypes] + " " + record[colTypes])
		if err != nil {
			skipped++
			continue
		}
		if strings.Contains(record[colSubtypes], "Background") {
			types |= TypeBackground
		}
		out = append(out, Card{
			Name:      record[colName],
			ManaCost:  record[colManaCosts],
			RulesText: record[colRules],
			Types:     types,
			Keywords:  ParseKeywords(record[colRules]),
			Power:     parseStat(record[colPower]),
			Toughness: parseStat(record[colToughness]),
		})
	}
	return out, skipped, nil
}
