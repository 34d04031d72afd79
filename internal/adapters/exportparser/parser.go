package exportparser

import (
	"bytes"
	"fmt"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser определяет формат файла-экспорта и разбирает его в сырые записи.
// Состояния не имеет, безопасен для конкурентного использования.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Detect угадывает формат по содержимому, а не по расширению файла
func (p *Parser) Detect(data []byte) (domain.Format, error) {
	body := trimBOM(data)
	if len(body) == 0 {
		return domain.FormatUnknown, fmt.Errorf("%w: file is empty", domain.ErrParse)
	}

	switch body[0] {
	case '{', '[':
		return domain.FormatStructured, nil
	}

	if _, err := readHeader(body); err != nil {
		return domain.FormatUnknown, err
	}
	return domain.FormatTabular, nil
}

// Parse разбирает файл. Записи без названия пропускаются.
func (p *Parser) Parse(data []byte) ([]domain.RawRecord, error) {
	format, err := p.Detect(data)
	if err != nil {
		return nil, err
	}

	body := trimBOM(data)
	switch format {
	case domain.FormatTabular:
		return parseTabular(body)
	case domain.FormatStructured:
		return parseStructured(body)
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", domain.ErrParse, format)
	}
}

func trimBOM(data []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(data), utf8BOM))
}

// cleanText приводит текст к NFC и схлопывает пробелы
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// newRecord собирает запись и вытаскивает подсказки из ссылки на карту.
// Явные координаты и id имеют приоритет над найденными в ссылке.
func newRecord(title, note, rawURL, address, countryCode, placeID string, hint *domain.Coordinates) (domain.RawRecord, bool) {
	rec := domain.RawRecord{
		Title:           cleanText(title),
		Note:            strings.TrimSpace(note),
		URL:             strings.TrimSpace(rawURL),
		Address:         cleanText(address),
		CountryCode:     strings.ToUpper(strings.TrimSpace(countryCode)),
		ExternalPlaceID: strings.TrimSpace(placeID),
	}
	if rec.Title == "" {
		return rec, false
	}

	if hint != nil && usableHint(*hint) {
		h := *hint
		rec.Hint = &h
	}
	if rec.URL != "" {
		urlHint, urlID := extractFromURL(rec.URL)
		if rec.Hint == nil && urlHint != nil {
			rec.Hint = urlHint
		}
		if rec.ExternalPlaceID == "" {
			rec.ExternalPlaceID = urlID
		}
	}
	return rec, true
}

// usableHint отсекает невалидные координаты и "нулевой остров",
// которым экспорт помечает отсутствие геометрии
func usableHint(c domain.Coordinates) bool {
	if !c.Valid() {
		return false
	}
	return c.Latitude != 0 || c.Longitude != 0
}

var _ port.ExportParserPort = (*Parser)(nil)
