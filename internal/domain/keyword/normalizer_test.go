package keyword

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

const dataForSEOItem = `{
  "se_type": "google",
  "keyword_data": {
    "keyword": "  SEO Tools ",
    "keyword_info": {
      "search_volume": 5000,
      "cpc": 12.35,
      "last_updated_time": "2024-05-01 10:00:00 +00:00"
    },
    "keyword_properties": {"keyword_difficulty": 70}
  },
  "ranked_serp_element": {
    "serp_item": {"type": "organic", "rank_group": 2, "rank_absolute": 3, "etv": 410.5}
  }
}`

func TestDataForSEONormalizer_FullRecord(t *testing.T) {
	n := NewDataForSEONormalizer()
	r, warnings, err := n.Normalize(RawRecord(dataForSEOItem))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "seo tools", r.Keyword)
	assert.Equal(t, int64(5000), r.SearchVolume)
	assert.Equal(t, 70, r.Difficulty)
	assert.Equal(t, "12.35", r.CPC.String())
	require.NotNil(t, r.Position)
	assert.Equal(t, 3, *r.Position)
	assert.InDelta(t, 5000*CTRAt(3), r.EstimatedTraffic, 1e-9)
	assert.Equal(t, "2024-05-01 10:00:00 +00:00", r.LastUpdated)
}

func TestDataForSEONormalizer_MissingNumericsDefaultToZero(t *testing.T) {
	n := NewDataForSEONormalizer()
	r, warnings, err := n.Normalize(RawRecord(`{"keyword_data":{"keyword":"rare term","keyword_info":{"search_volume":null}}}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Zero(t, r.SearchVolume)
	assert.Zero(t, r.Difficulty)
	assert.True(t, r.CPC.IsZero())
	assert.Nil(t, r.Position)
	assert.Zero(t, r.EstimatedTraffic)
}

func TestDataForSEONormalizer_FallbackPaths(t *testing.T) {
	n := NewDataForSEONormalizer()
	r, _, err := n.Normalize(RawRecord(`{"keyword":"flat","search_volume":"120","keyword_difficulty":"15","cpc":"0.40","ranked_serp_element":{"serp_item":{"rank_group":7}}}`))
	require.NoError(t, err)
	assert.Equal(t, "flat", r.Keyword)
	assert.Equal(t, int64(120), r.SearchVolume)
	assert.Equal(t, 15, r.Difficulty)
	assert.Equal(t, "0.4", r.CPC.String())
	require.NotNil(t, r.Position)
	assert.Equal(t, 7, *r.Position)
}

func TestNormalizer_Clamping(t *testing.T) {
	n := NewCanonicalNormalizer()

	cases := []struct {
		name       string
		raw        string
		field      string
		difficulty int
		volume     int64
		cpc        string
	}{
		{"difficulty above range", `{"keyword":"a","difficulty":140}`, "difficulty", 100, 0, "0"},
		{"difficulty below range", `{"keyword":"a","difficulty":-4}`, "difficulty", 0, 0, "0"},
		{"negative volume", `{"keyword":"a","search_volume":-10}`, "search_volume", 0, 0, "0"},
		{"negative cpc", `{"keyword":"a","cpc":-1.2}`, "cpc", 0, 0, "0"},
		{"huge difficulty", `{"keyword":"a","difficulty":1e20}`, "difficulty", 100, 0, "0"},
		{"huge negative difficulty", `{"keyword":"a","difficulty":-1e20}`, "difficulty", 0, 0, "0"},
		{"huge volume", `{"keyword":"a","search_volume":1e20}`, "search_volume", 0, math.MaxInt64, "0"},
		{"huge volume as text", `{"keyword":"a","search_volume":"9.3e18"}`, "search_volume", 0, math.MaxInt64, "0"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, warnings, err := n.Normalize(RawRecord(tc.raw))
			require.NoError(t, err)
			require.Len(t, warnings, 1)
			assert.Equal(t, tc.field, warnings[0].Field)
			assert.Equal(t, errors.ErrCodeNormalization, warnings[0].Code)
			assert.Equal(t, "a", warnings[0].Keyword)
			assert.Equal(t, tc.difficulty, r.Difficulty)
			assert.Equal(t, tc.volume, r.SearchVolume)
			assert.Equal(t, tc.cpc, r.CPC.String())
		})
	}
}

func TestNormalizer_RejectsNonFiniteNumbers(t *testing.T) {
	for _, n := range []Normalizer{NewCanonicalNormalizer(), NewDataForSEONormalizer()} {
		for _, raw := range []string{
			`{"keyword":"a","search_volume":"NaN"}`,
			`{"keyword":"a","search_volume":"-Inf"}`,
			`{"keyword":"a","keyword_difficulty":"Inf","difficulty":"Inf"}`,
			`{"keyword":"a","cpc":"NaN"}`,
			`{"keyword":"a","search_volume":1e400}`,
			`{"keyword":"a","rank_absolute":"+Inf","position":"+Inf"}`,
		} {
			_, _, err := n.Normalize(RawRecord(raw))
			assert.True(t, errors.IsCode(err, errors.ErrCodeNormalization), "%s %s", n.Name(), raw)
		}
	}
}

func TestNormalizer_HugePositionIsBeyondDepth(t *testing.T) {
	r, warnings, err := NewCanonicalNormalizer().Normalize(RawRecord(`{"keyword":"a","position":1e20}`))
	require.NoError(t, err)
	assert.Nil(t, r.Position)
	assert.Zero(t, r.EstimatedTraffic)
	require.Len(t, warnings, 1)
	assert.Equal(t, "position", warnings[0].Field)
}

func TestNormalizer_NonPositivePositionIsAbsent(t *testing.T) {
	n := NewCanonicalNormalizer()
	for _, raw := range []string{
		`{"keyword":"a","position":0}`,
		`{"keyword":"a","position":-2}`,
		`{"keyword":"a","position":null}`,
	} {
		r, warnings, err := n.Normalize(RawRecord(raw))
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Nil(t, r.Position, raw)
	}
}

func TestNormalizer_Discards(t *testing.T) {
	n := NewDataForSEONormalizer()
	for name, raw := range map[string]string{
		"invalid json":       `{"keyword_data":`,
		"missing keyword":    `{"keyword_data":{"keyword_info":{"search_volume":10}}}`,
		"blank keyword":      `{"keyword_data":{"keyword":"   "}}`,
		"non-string keyword": `{"keyword_data":{"keyword":42}}`,
		"bad volume":         `{"keyword_data":{"keyword":"x","keyword_info":{"search_volume":"lots"}}}`,
		"object difficulty":  `{"keyword_data":{"keyword":"x","keyword_properties":{"keyword_difficulty":{}}}}`,
		"bool position":      `{"keyword":"x","ranked_serp_element":{"serp_item":{"rank_absolute":true}}}`,
	} {
		_, _, err := n.Normalize(RawRecord(raw))
		require.Error(t, err, name)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNormalization), name)
	}
}

func TestNormalizer_Deterministic(t *testing.T) {
	n := NewDataForSEONormalizer()
	a, wa, errA := n.Normalize(RawRecord(dataForSEOItem))
	b, wb, errB := n.Normalize(RawRecord(dataForSEOItem))
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.True(t, a.Equal(b))
	assert.Equal(t, wa, wb)
}

func TestNormalizer_Idempotent(t *testing.T) {
	first, _, err := NewDataForSEONormalizer().Normalize(RawRecord(dataForSEOItem))
	require.NoError(t, err)

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	canonical := NewCanonicalNormalizer()
	second, warnings, err := canonical.Normalize(RawRecord(encoded))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, first.Equal(second), "first=%+v second=%+v", first, second)

	reencoded, err := json.Marshal(second)
	require.NoError(t, err)
	third, _, err := canonical.Normalize(RawRecord(reencoded))
	require.NoError(t, err)
	assert.True(t, second.Equal(third))
	assert.JSONEq(t, string(encoded), string(reencoded))
}

func TestRawRecord_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Item RawRecord `json:"item"`
	}{Item: RawRecord(`{"a":1}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":{"a":1}}`, string(b))

	b, err = json.Marshal(RawRecord(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{Canonical, DataForSEOV3}, r.Names())

	n, err := r.Get(DataForSEOV3)
	require.NoError(t, err)
	assert.Equal(t, DataForSEOV3, n.Name())

	_, err = r.Get("semrush/v1")
	assert.True(t, errors.IsNotFound(err))

	assert.Error(t, r.Register(NewCanonicalNormalizer()))
	require.NoError(t, r.Register(NewPathNormalizer("custom", CanonicalPaths)))
	assert.Contains(t, r.Names(), "custom")
	assert.Error(t, r.Register(nil))
}

//Personal.AI order the ending
