package exportparser

import (
	"encoding/json"
	"fmt"
	"import-service/internal/contracts"
	"import-service/internal/core/domain"
)

type takeoutCollection struct {
	Type     string           `json:"type"`
	Features []takeoutFeature `json:"features"`
}

type takeoutFeature struct {
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties takeoutProperties `json:"properties"`
}

type takeoutProperties struct {
	Title         string           `json:"Title"`
	Name          string           `json:"name"`
	URL           string           `json:"google_maps_url"`
	LegacyURL     string           `json:"Google Maps URL"`
	Comment       string           `json:"Comment"`
	Location      *takeoutLocation `json:"location"`
	LegacyAddress string           `json:"Address"`
}

type takeoutLocation struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	BusinessName string `json:"Business Name"`
	CountryCode  string `json:"country_code"`
	LegacyCode   string `json:"Country Code"`
}

type placeItem struct {
	Title       string   `json:"title"`
	Name        string   `json:"name"`
	Note        string   `json:"note"`
	Comment     string   `json:"comment"`
	URL         string   `json:"url"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	PlaceID     string   `json:"place_id"`
	CountryCode string   `json:"country_code"`
}

type placeEnvelope struct {
	Places []placeItem `json:"places"`
}

func parseStructured(body []byte) ([]domain.RawRecord, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrParse, err)
	}

	if obj, ok := doc.(map[string]interface{}); ok && obj["type"] == "FeatureCollection" {
		return parseFeatureCollection(body, doc)
	}
	return parsePlaceList(body, doc)
}

func parseFeatureCollection(body []byte, doc interface{}) ([]domain.RawRecord, error) {
	if err := contracts.Validate(contracts.TakeoutFeaturesExport, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	var fc takeoutCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	records := make([]domain.RawRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := f.Properties
		title := firstNonEmpty(props.Title, props.Name)
		address := props.LegacyAddress
		var country string
		if loc := props.Location; loc != nil {
			title = firstNonEmpty(title, loc.Name, loc.BusinessName)
			address = firstNonEmpty(loc.Address, address)
			country = firstNonEmpty(loc.CountryCode, loc.LegacyCode)
		}

		var hint *domain.Coordinates
		// GeoJSON хранит точку как [lng, lat]
		if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
			hint = &domain.Coordinates{Latitude: f.Geometry.Coordinates[1], Longitude: f.Geometry.Coordinates[0]}
		}

		rec, ok := newRecord(title, props.Comment, firstNonEmpty(props.URL, props.LegacyURL), address, country, "", hint)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func parsePlaceList(body []byte, doc interface{}) ([]domain.RawRecord, error) {
	if err := contracts.Validate(contracts.PlaceListExport, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	var items []placeItem
	if _, isArray := doc.([]interface{}); isArray {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
	} else {
		var env placeEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		items = env.Places
	}

	records := make([]domain.RawRecord, 0, len(items))
	for _, it := range items {
		var hint *domain.Coordinates
		if it.Latitude != nil && it.Longitude != nil {
			hint = &domain.Coordinates{Latitude: *it.Latitude, Longitude: *it.Longitude}
		}
		rec, ok := newRecord(firstNonEmpty(it.Title, it.Name), firstNonEmpty(it.Note, it.Comment), it.URL, it.Address, it.CountryCode, it.PlaceID, hint)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
