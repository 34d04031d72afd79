package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// CityRule сопоставляет ключевые слова с городом и его базовой координатой
type CityRule struct {
	Keywords  []string `yaml:"keywords"`
	City      string   `yaml:"city"`
	Country   string   `yaml:"country"`
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
}

// Coordinates возвращает базовую координату города
func (r CityRule) Coordinates() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

// CategoryRule сопоставляет ключевые слова с категорией
type CategoryRule struct {
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
}

// RuleSet - упорядоченные таблицы правил. Побеждает первое сработавшее правило.
type RuleSet struct {
	Cities            []CityRule     `yaml:"cities"`
	Categories        []CategoryRule `yaml:"categories"`
	DefaultCity       string         `yaml:"default_city"`
	PlaceholderOffset float64        `yaml:"placeholder_offset"`
}

var folder = cases.Fold()

// normalizeText приводит текст к виду " tok1 tok2 ... " для поиска по целым словам.
func normalizeText(s string) string {
	folded := folder.String(s)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

// containsKeyword ищет ключевое слово целиком. Для письменностей без пробелов
// между словами (иероглифы, кана, хангыль, тайский) целых слов нет, поэтому
// такие ключевые слова ищутся как подстрока.
func containsKeyword(normalized string, keyword string) bool {
	kw := normalizeText(keyword)
	if kw == "" || normalized == "" {
		return false
	}
	if unspaced(kw) {
		return strings.Contains(normalized, strings.TrimSpace(kw))
	}
	return strings.Contains(normalized, kw)
}

func unspaced(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Thai) {
			return true
		}
	}
	return false
}

// MatchCity ищет первое правило города, ключевое слово которого встречается
// в одном из текстов. Тексты проверяются по порядку.
func (r *RuleSet) MatchCity(texts ...string) (CityRule, bool) {
	for _, text := range texts {
		normalized := normalizeText(text)
		if normalized == "" {
			continue
		}
		for _, rule := range r.Cities {
			for _, kw := range rule.Keywords {
				if containsKeyword(normalized, kw) {
					return rule, true
				}
			}
		}
	}
	return CityRule{}, false
}

// MatchCategory ищет первое правило категории для текстов, проверяемых по порядку.
func (r *RuleSet) MatchCategory(texts ...string) (string, bool) {
	for _, text := range texts {
		normalized := normalizeText(text)
		if normalized == "" {
			continue
		}
		for _, rule := range r.Categories {
			for _, kw := range rule.Keywords {
				if containsKeyword(normalized, kw) {
					return rule.Category, true
				}
			}
		}
	}
	return "", false
}

// cityByName возвращает правило для города по его имени
func (r *RuleSet) cityByName(name string) (CityRule, bool) {
	for _, rule := range r.Cities {
		if strings.EqualFold(rule.City, name) {
			return rule, true
		}
	}
	return CityRule{}, false
}

// PlaceholderCity возвращает правило города, от которого строится заглушка для
// названия списка. Если ни одно правило не сработало, используется город по умолчанию.
func (r *RuleSet) PlaceholderCity(listTitle string) (CityRule, bool) {
	if rule, ok := r.MatchCity(listTitle); ok {
		return rule, true
	}
	if rule, ok := r.cityByName(r.DefaultCity); ok {
		return rule, true
	}
	if len(r.Cities) > 0 {
		return r.Cities[0], true
	}
	return CityRule{}, false
}

// PlaceholderBase возвращает базовую координату заглушки для названия списка
func (r *RuleSet) PlaceholderBase(listTitle string) Coordinates {
	rule, _ := r.PlaceholderCity(listTitle)
	return rule.Coordinates()
}

// PlaceholderSpread - наибольший сдвиг заглушки от базовой точки по широте, в градусах.
// По долготе сдвиг не больше удвоенного значения.
const PlaceholderSpread = 0.5

// Placeholder - детерминированная координата-заглушка: чистая функция от
// (listTitle, index). Смещение index*offset не дает местам одного списка
// схлопнуться в одну точку.
//
// Пока сдвиг укладывается в PlaceholderSpread, точки идут по диагонали
// base + index*offset. Дальше индекс переносится на следующую полосу, сдвинутую
// по долготе, так что точки остаются разными и рядом с городом. Если сдвиг
// вывел бы координату за допустимый диапазон, он откладывается в другую сторону.
func (r *RuleSet) Placeholder(listTitle string, index int) Coordinates {
	base := r.PlaceholderBase(listTitle)
	if index <= 0 || r.PlaceholderOffset <= 0 {
		return base
	}

	steps := int(PlaceholderSpread / r.PlaceholderOffset)
	if steps < 1 {
		steps = 1
	}
	step := float64(index % steps)
	band := float64((index / steps) % steps)

	latShift := step * r.PlaceholderOffset
	lngShift := (step + band) * r.PlaceholderOffset
	return Coordinates{
		Latitude:  base.Latitude + latShift*direction(base.Latitude, PlaceholderSpread, 90),
		Longitude: base.Longitude + lngShift*direction(base.Longitude, 2*PlaceholderSpread, 180),
	}
}

// direction - знак сдвига, при котором value+span не выходит за limit
func direction(value, span, limit float64) float64 {
	if value+span > limit {
		return -1
	}
	return 1
}
