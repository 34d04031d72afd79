package exportparser

import (
	"import-service/internal/core/domain"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// !3d<lat>!4d<lng> - точные координаты места в data-части ссылки
	dataCoordsRe = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	// @<lat>,<lng> - центр карты
	atCoordsRe = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
	// "<lat>,<lng>" в параметре запроса или сегменте пути
	pairRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*\+?(-?\d+(?:\.\d+)?)\s*$`)
	// !1s0x...:0x... - feature id
	ftidRe = regexp.MustCompile(`!1s(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`)
)

var idParams = []string{"place_id", "query_place_id", "ftid", "cid"}

// extractFromURL достает из ссылки на карту координаты и внешний id места
func extractFromURL(raw string) (*domain.Coordinates, string) {
	var hint *domain.Coordinates
	var placeID string

	u, err := url.Parse(raw)
	if err == nil {
		q := u.Query()
		for _, name := range idParams {
			if v := strings.TrimSpace(q.Get(name)); v != "" {
				placeID = v
				break
			}
		}
		for _, name := range []string{"q", "query", "ll"} {
			if c := parsePair(q.Get(name)); c != nil {
				hint = c
				break
			}
		}
		if hint == nil {
			segments := strings.Split(strings.Trim(u.Path, "/"), "/")
			if c := parsePair(segments[len(segments)-1]); c != nil {
				hint = c
			}
		}
	}

	if placeID == "" {
		if m := ftidRe.FindStringSubmatch(raw); m != nil {
			placeID = m[1]
		}
	}

	for _, re := range []*regexp.Regexp{dataCoordsRe, atCoordsRe} {
		if hint != nil {
			break
		}
		if m := re.FindStringSubmatch(raw); m != nil {
			hint = toCoordinates(m[1], m[2])
		}
	}

	if hint != nil && !usableHint(*hint) {
		hint = nil
	}
	return hint, placeID
}

func parsePair(s string) *domain.Coordinates {
	if s == "" {
		return nil
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	m := pairRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return toCoordinates(m[1], m[2])
}

func toCoordinates(latStr, lngStr string) *domain.Coordinates {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil
	}
	c := domain.Coordinates{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return nil
	}
	return &c
}
