package exportparser

import (
	"testing"

	"import-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	p := NewParser()

	cases := []struct {
		name   string
		data   string
		format domain.Format
	}{
		{"csv", "Title,Note,URL\nA,,\n", domain.FormatTabular},
		{"csv with bom", "\xEF\xBB\xBFname;address\nA;B\n", domain.FormatTabular},
		{"json array", "  [ ]", domain.FormatStructured},
		{"geojson", `{"type":"FeatureCollection","features":[]}`, domain.FormatStructured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := p.Detect([]byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.format, f)
		})
	}

	for _, bad := range []string{"", "   \n", "foo,bar\n1,2\n"} {
		_, err := p.Detect([]byte(bad))
		assert.ErrorIs(t, err, domain.ErrParse, "%q", bad)
	}
}

func TestParseTabular_TakeoutCSV(t *testing.T) {
	data := "Title,Note,URL,Tags,Comment\n" +
		"\n" +
		"Ichiran Shibuya,late night,\"https://www.google.com/maps/place/Ichiran/@35.6614,139.7010,17z/data=!3m1!4b1!4m6!3m5!1s0x60188b5:0x1a2b!8m2!3d35.6612!4d139.7016\",,\n" +
		",no title here,,,\n" +
		"Afuri,,https://www.google.com/maps/search/?api=1&query=35.6467%2C139.7101&query_place_id=ChIJabc,,yuzu ramen\n"

	recs, err := NewParser().Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Ichiran Shibuya", recs[0].Title)
	assert.Equal(t, "late night", recs[0].Note)
	require.NotNil(t, recs[0].Hint)
	assert.InDelta(t, 35.6612, recs[0].Hint.Latitude, 1e-9)
	assert.InDelta(t, 139.7016, recs[0].Hint.Longitude, 1e-9)
	assert.Equal(t, "0x60188b5:0x1a2b", recs[0].ExternalPlaceID)

	assert.Equal(t, "Afuri", recs[1].Title)
	assert.Equal(t, "yuzu ramen", recs[1].Note)
	require.NotNil(t, recs[1].Hint)
	assert.InDelta(t, 35.6467, recs[1].Hint.Latitude, 1e-9)
	assert.Equal(t, "ChIJabc", recs[1].ExternalPlaceID)
}

func TestParseTabular_SemicolonAndAddress(t *testing.T) {
	data := "Name;Address;Comment\nLe Comptoir;9 Carrefour de l'Odéon, Paris;bistro\n"

	recs, err := NewParser().Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Le Comptoir", recs[0].Title)
	assert.Equal(t, "9 Carrefour de l'Odéon, Paris", recs[0].Address)
	assert.Equal(t, "bistro", recs[0].Note)
	assert.Nil(t, recs[0].Hint)
}

func TestParseStructured_FeatureCollection(t *testing.T) {
	data := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type":"Feature","geometry":{"type":"Point","coordinates":[139.7016,35.6612]},
	     "properties":{"Title":"Ichiran","location":{"address":"1-22-7 Jinnan, Shibuya, Tokyo","country_code":"jp"},"Comment":"go early"}},
	    {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},
	     "properties":{"google_maps_url":"http://maps.google.com/?cid=123","location":{"name":"Tsuta"}}},
	    {"type":"Feature","geometry":null,"properties":{}}
	  ]
	}`

	recs, err := NewParser().Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Ichiran", recs[0].Title)
	assert.Equal(t, "1-22-7 Jinnan, Shibuya, Tokyo", recs[0].Address)
	assert.Equal(t, "JP", recs[0].CountryCode)
	assert.Equal(t, "go early", recs[0].Note)
	require.NotNil(t, recs[0].Hint)
	assert.InDelta(t, 35.6612, recs[0].Hint.Latitude, 1e-9)

	assert.Equal(t, "Tsuta", recs[1].Title)
	assert.Nil(t, recs[1].Hint, "null island is not a coordinate")
	assert.Equal(t, "123", recs[1].ExternalPlaceID)
}

func TestParseStructured_PlaceList(t *testing.T) {
	data := `{"places":[
	  {"name":"Louvre","address":"Rue de Rivoli, Paris","latitude":48.8606,"longitude":2.3376,"place_id":"ChIJLouvre"},
	  {"title":"  Café   de Flore ","latitude":120,"longitude":2}
	]}`

	recs, err := NewParser().Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ChIJLouvre", recs[0].ExternalPlaceID)
	require.NotNil(t, recs[0].Hint)
	assert.InDelta(t, 2.3376, recs[0].Hint.Longitude, 1e-9)

	assert.Equal(t, "Café de Flore", recs[1].Title)
	assert.Nil(t, recs[1].Hint, "out of range coordinates are dropped")
}

func TestParseStructured_Invalid(t *testing.T) {
	p := NewParser()
	for _, bad := range []string{
		`{ broken`,
		`{"type":"FeatureCollection"}`,
		`[{"title":"A","latitude":"north"}]`,
		`{"something":"else"}`,
	} {
		_, err := p.Parse([]byte(bad))
		assert.ErrorIs(t, err, domain.ErrParse, bad)
	}
}

func TestExtractFromURL(t *testing.T) {
	hint, id := extractFromURL("https://www.google.com/maps/@40.7128,-74.0060,15z")
	require.NotNil(t, hint)
	assert.InDelta(t, -74.006, hint.Longitude, 1e-9)
	assert.Empty(t, id)

	hint, _ = extractFromURL("https://maps.google.com/?q=48.85,2.35")
	require.NotNil(t, hint)
	assert.InDelta(t, 48.85, hint.Latitude, 1e-9)

	hint, id = extractFromURL("https://maps.google.com/?q=Eiffel+Tower&ftid=0x47e6:0x8ddca")
	assert.Nil(t, hint)
	assert.Equal(t, "0x47e6:0x8ddca", id)

	hint, _ = extractFromURL("https://www.google.com/maps/search/35.6595,139.7005")
	require.NotNil(t, hint)
	assert.InDelta(t, 139.7005, hint.Longitude, 1e-9)

	hint, _ = extractFromURL("not a url at all")
	assert.Nil(t, hint)
}
