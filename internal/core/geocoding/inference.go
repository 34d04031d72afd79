package geocoding

import "import-service/internal/core/domain"

// ListContext выводит город и категорию списка до разрешения мест:
// правила по названию, затем по адресам записей.
func (r *Resolver) ListContext(title string, records []domain.RawRecord) domain.ListContext {
	lc := domain.ListContext{Title: title}
	if rule, ok := r.rules.MatchCity(title); ok {
		lc.City = strPtr(rule.City)
	}

	if c, ok := r.rules.MatchCategory(title); ok {
		lc.Category = strPtr(c)
	} else {
		for _, rec := range records {
			if c, ok := r.rules.MatchCategory(rec.Address); ok {
				lc.Category = strPtr(c)
				break
			}
		}
	}
	return lc
}
