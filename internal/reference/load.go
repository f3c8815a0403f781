package reference

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

// Fixed column layout of the national master list: No, 목, 과, 학명, 국명.
const (
	fallbackFamilyCol     = 2
	fallbackScientificCol = 3
	fallbackNameCol       = 4

	headerScanRows = 3
	// banner rows above a headerless master list
	maxBannerRows = 2
)

var (
	nameKeywords       = []string{"국명", "한글명", "이름", "종명", "name", "commonname", "koreanname"}
	familyKeywords     = []string{"과", "과명", "family"}
	scientificKeywords = []string{"학명", "scientificname"}
	// labels that show up in the family column when banner or subtotal rows leak into the body
	labelStrings = []string{"목", "목명", "order", "no", "번호", "합계", "계", "total"}
)

type textEncoding struct {
	name   string
	decode func([]byte) (string, bool)
}

// encodings are tried in order; the first that yields clean text wins.
var encodings = []textEncoding{
	{"utf-8", decodeUTF8},
	{"cp949", decodeWith(korean.EUCKR)},
	{"utf-16", decodeUTF16},
}

// Load parses the master list at path. It never fails: any problem is logged
// and an empty Catalog is returned.
func Load(path string, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	catalog, err := load(path)
	if err != nil {
		log.Warn("species reference unavailable, all species will be uncatalogued",
			logger.String("path", path),
			logger.Error(err))
		return NewCatalog(nil)
	}

	log.Info("species reference loaded",
		logger.String("path", path),
		logger.Int("species", catalog.Len()),
		logger.Int("families", len(catalog.Families())))
	return catalog
}

func load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("reference").
			Category(errors.CategoryFileIO).
			Build()
	}

	text, encName, ok := decode(data)
	if !ok {
		return nil, errors.Newf("no supported text encoding matched").
			Component("reference").
			Category(errors.CategoryFileParsing).
			Build()
	}

	records, err := parseCSV(text)
	if err != nil {
		return nil, errors.New(err).
			Component("reference").
			Category(errors.CategoryFileParsing).
			Context("encoding", encName).
			Build()
	}

	rows, err := extractRows(records)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(rows)
	if catalog.Empty() {
		return nil, errors.Newf("no species rows found").
			Component("reference").
			Category(errors.CategoryFileParsing).
			Context("encoding", encName).
			Build()
	}
	return catalog, nil
}

// Parse builds a Catalog from already-decoded CSV text.
func Parse(text string) (*Catalog, error) {
	records, err := parseCSV(text)
	if err != nil {
		return nil, err
	}
	rows, err := extractRows(records)
	if err != nil {
		return nil, err
	}
	return NewCatalog(rows), nil
}

func decode(data []byte) (text, encName string, ok bool) {
	for _, enc := range encodings {
		if text, ok := enc.decode(data); ok {
			return text, enc.name, true
		}
	}
	return "", "", false
}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

func decodeUTF16(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, []byte{0xff, 0xfe}) && !bytes.HasPrefix(data, []byte{0xfe, 0xff}) {
		return "", false
	}
	return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))(data)
}

func parseCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

type columns struct {
	name, family, scientific int
	dataStart                int
}

// detectColumns matches header cells in the first rows against the keyword
// sets and falls back to the fixed master list layout.
func detectColumns(records [][]string) columns {
	cols := columns{name: -1, family: -1, scientific: -1}

	for i := 0; i < len(records) && i < headerScanRows; i++ {
		matched := false
		for j, value := range records[i] {
			key := headerKey(value)
			switch {
			case cols.name < 0 && slices.Contains(nameKeywords, key):
				cols.name, matched = j, true
			case cols.family < 0 && slices.Contains(familyKeywords, key):
				cols.family, matched = j, true
			case cols.scientific < 0 && slices.Contains(scientificKeywords, key):
				cols.scientific, matched = j, true
			}
		}
		if matched {
			cols.dataStart = i + 1
		}
	}

	if cols.name >= 0 && cols.family >= 0 {
		return cols
	}
	return columns{
		name:       fallbackNameCol,
		family:     fallbackFamilyCol,
		scientific: fallbackScientificCol,
		dataStart:  bannerRows(records),
	}
}

// bannerRows counts the leading rows whose No cell is not a number.
func bannerRows(records [][]string) int {
	n := 0
	for n < len(records) && n < maxBannerRows {
		if _, err := strconv.Atoi(cell(records[n], 0)); err == nil {
			break
		}
		n++
	}
	return n
}

func extractRows(records [][]string) ([]Row, error) {
	cols := detectColumns(records)

	rows := make([]Row, 0, len(records))
	for _, rec := range records[cols.dataStart:] {
		name := cell(rec, cols.name)
		family := cell(rec, cols.family)
		if name == "" || isLabel(name) || isLabel(family) {
			continue
		}
		rows = append(rows, Row{
			Name:           name,
			Family:         family,
			ScientificName: cell(rec, cols.scientific),
		})
	}

	if len(rows) == 0 {
		return nil, errors.Newf("no plausible species columns found").
			Component("reference").
			Category(errors.CategoryFileParsing).
			Context("records", len(records)).
			Build()
	}
	return rows, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func headerKey(s string) string {
	return strings.ToLower(NormalizeName(s))
}

// isLabel reports whether a value is a header or label string rather than data.
func isLabel(s string) bool {
	key := headerKey(s)
	if key == "" {
		return false
	}
	return slices.Contains(nameKeywords, key) ||
		slices.Contains(familyKeywords, key) ||
		slices.Contains(scientificKeywords, key) ||
		slices.Contains(labelStrings, key)
}
