package nominatim

// searchResult - элемент ответа /search?format=jsonv2
type searchResult struct {
	PlaceID     int64         `json:"place_id"`
	OSMType     string        `json:"osm_type"`
	OSMID       int64         `json:"osm_id"`
	Lat         string        `json:"lat"`
	Lon         string        `json:"lon"`
	DisplayName string        `json:"display_name"`
	Address     searchAddress `json:"address"`
}

type searchAddress struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}
