package keyword

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// RawRecord is the undecoded JSON of one provider result item.
type RawRecord json.RawMessage

// MarshalJSON keeps RawRecord embeddable in JSON documents.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(r).MarshalJSON()
}

// Warning describes a field that was repaired during normalization.  The
// record itself was kept.
type Warning struct {
	Keyword string          `json:"keyword"`
	Field   string          `json:"field"`
	Reason  string          `json:"reason"`
	Code    errors.ErrorCode `json:"code"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s %s", w.Keyword, w.Field, w.Reason)
}

// Normalizer converts one raw provider record into a Ranking.  A returned
// error means the record was discarded; warnings describe repaired fields of
// a kept record.  Implementations are pure and deterministic.
type Normalizer interface {
	Name() string
	Normalize(raw RawRecord) (Ranking, []Warning, error)
}

// FieldPaths lists, per field, the gjson paths tried in order.  The first
// path that exists wins.
type FieldPaths struct {
	Keyword      []string
	SearchVolume []string
	Difficulty   []string
	CPC          []string
	Position     []string
	LastUpdated  []string
}

// Normalizer names registered by NewRegistry.
const (
	DataForSEOV3 = "dataforseo/v3"
	Canonical    = "canonical"
)

// DataForSEOPaths matches the DataForSEO Labs ranked_keywords item shape and
// tolerates flattened variants of it.
var DataForSEOPaths = FieldPaths{
	Keyword: []string{"keyword_data.keyword", "keyword"},
	SearchVolume: []string{
		"keyword_data.keyword_info.search_volume",
		"keyword_info.search_volume",
		"search_volume",
	},
	Difficulty: []string{
		"keyword_data.keyword_properties.keyword_difficulty",
		"keyword_properties.keyword_difficulty",
		"keyword_difficulty",
	},
	CPC: []string{"keyword_data.keyword_info.cpc", "keyword_info.cpc", "cpc"},
	Position: []string{
		"ranked_serp_element.serp_item.rank_absolute",
		"ranked_serp_element.serp_item.rank_group",
		"rank_absolute",
	},
	LastUpdated: []string{
		"keyword_data.keyword_info.last_updated_time",
		"keyword_info.last_updated_time",
	},
}

// CanonicalPaths matches the JSON encoding of Ranking.
var CanonicalPaths = FieldPaths{
	Keyword:      []string{"keyword"},
	SearchVolume: []string{"search_volume"},
	Difficulty:   []string{"difficulty"},
	CPC:          []string{"cpc"},
	Position:     []string{"position"},
	LastUpdated:  []string{"last_updated"},
}

type pathNormalizer struct {
	name  string
	paths FieldPaths
}

// NewPathNormalizer returns a Normalizer that extracts fields with gjson
// using paths.
func NewPathNormalizer(name string, paths FieldPaths) Normalizer {
	return &pathNormalizer{name: name, paths: paths}
}

// NewDataForSEONormalizer returns the normalizer for DataForSEO Labs items.
func NewDataForSEONormalizer() Normalizer { return NewPathNormalizer(DataForSEOV3, DataForSEOPaths) }

// NewCanonicalNormalizer returns the normalizer for encoded Ranking values.
func NewCanonicalNormalizer() Normalizer { return NewPathNormalizer(Canonical, CanonicalPaths) }

func (n *pathNormalizer) Name() string { return n.name }

func lookup(raw []byte, paths []string) (gjson.Result, string) {
	for _, p := range paths {
		if r := gjson.GetBytes(raw, p); r.Exists() {
			return r, p
		}
	}
	return gjson.Result{}, ""
}

func discard(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeNormalization, "record discarded").WithDetail(fmt.Sprintf(format, args...))
}

// numeric returns the value of r as a float and as its decimal text.  Absent
// and null values report present=false.  Non-numeric text and non-finite
// values report ok=false.
func numeric(r gjson.Result) (v float64, s string, present bool, ok bool) {
	switch r.Type {
	case gjson.Null:
		return 0, "", false, true
	case gjson.Number:
		s = r.Raw
	case gjson.String:
		s = strings.TrimSpace(r.Str)
		if s == "" {
			return 0, "", false, true
		}
	default:
		return 0, "", true, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "", true, false
	}
	return v, s, true, true
}

func (n *pathNormalizer) Normalize(raw RawRecord) (Ranking, []Warning, error) {
	data := []byte(raw)
	if !gjson.ValidBytes(data) {
		return Ranking{}, nil, discard("invalid JSON")
	}

	kr, _ := lookup(data, n.paths.Keyword)
	if kr.Type != gjson.String {
		return Ranking{}, nil, discard("missing keyword")
	}
	kw := NormalizeKeyword(kr.Str)
	if kw == "" {
		return Ranking{}, nil, discard("empty keyword")
	}

	out := Ranking{Keyword: kw}
	var warnings []Warning
	warn := func(field, reason string) {
		warnings = append(warnings, Warning{Keyword: kw, Field: field, Reason: reason, Code: errors.ErrCodeNormalization})
	}

	// search volume
	if r, path := lookup(data, n.paths.SearchVolume); path != "" {
		v, _, present, ok := numeric(r)
		if !ok {
			return Ranking{}, nil, discard("keyword %q: unparseable search_volume %s", kw, r.Raw)
		}
		if present {
			switch {
			case v < 0:
				warn("search_volume", fmt.Sprintf("negative value %g clamped to 0", v))
				out.SearchVolume = 0
			case v >= math.MaxInt64:
				warn("search_volume", fmt.Sprintf("value %g clamped to %d", v, int64(math.MaxInt64)))
				out.SearchVolume = math.MaxInt64
			default:
				out.SearchVolume = int64(math.Round(v))
			}
		}
	}

	// difficulty
	if r, path := lookup(data, n.paths.Difficulty); path != "" {
		v, _, present, ok := numeric(r)
		if !ok {
			return Ranking{}, nil, discard("keyword %q: unparseable difficulty %s", kw, r.Raw)
		}
		if present {
			switch {
			case v < 0:
				warn("difficulty", fmt.Sprintf("value %g clamped to 0", v))
				out.Difficulty = 0
			case v > 100:
				warn("difficulty", fmt.Sprintf("value %g clamped to 100", v))
				out.Difficulty = 100
			default:
				out.Difficulty = int(math.Round(v))
			}
		}
	}

	// cpc
	if r, path := lookup(data, n.paths.CPC); path != "" {
		_, s, present, ok := numeric(r)
		if !ok {
			return Ranking{}, nil, discard("keyword %q: unparseable cpc %s", kw, r.Raw)
		}
		if present {
			c, err := decimal.NewFromString(s)
			if err != nil {
				return Ranking{}, nil, discard("keyword %q: unparseable cpc %s", kw, r.Raw)
			}
			if c.IsNegative() {
				warn("cpc", fmt.Sprintf("negative value %s clamped to 0", c.String()))
				c = decimal.Zero
			}
			out.CPC = c
		}
	}

	// position
	if r, path := lookup(data, n.paths.Position); path != "" {
		v, _, present, ok := numeric(r)
		if !ok {
			return Ranking{}, nil, discard("keyword %q: unparseable position %s", kw, r.Raw)
		}
		switch {
		case !present || math.Round(v) <= 0:
		case v >= math.MaxInt:
			warn("position", fmt.Sprintf("value %g beyond tracked depth", v))
		default:
			out.Position = IntPtr(int(math.Round(v)))
		}
	}

	if r, path := lookup(data, n.paths.LastUpdated); path != "" && r.Type == gjson.String {
		out.LastUpdated = r.Str
	}

	out.EstimatedTraffic = EstimateTraffic(out.SearchVolume, out.Position)
	return out, warnings, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// Registry resolves normalizers by provider version name so a new provider
// schema plugs in without touching the gap engine.
type Registry struct {
	mu          sync.RWMutex
	normalizers map[string]Normalizer
}

// NewRegistry returns a registry holding the DataForSEO and canonical
// normalizers.
func NewRegistry() *Registry {
	r := &Registry{normalizers: make(map[string]Normalizer)}
	_ = r.Register(NewDataForSEONormalizer())
	_ = r.Register(NewCanonicalNormalizer())
	return r
}

// Register adds n.  Names are unique.
func (r *Registry) Register(n Normalizer) error {
	if n == nil || n.Name() == "" {
		return errors.InvalidParam("normalizer must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.normalizers[n.Name()]; exists {
		return errors.New(errors.ErrCodeConflict, "normalizer already registered").WithDetail(n.Name())
	}
	r.normalizers[n.Name()] = n
	return nil
}

// Get returns the normalizer registered under name.
func (r *Registry) Get(name string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.normalizers[name]
	if !ok {
		return nil, errors.NotFound("normalizer not registered").WithDetail(name)
	}
	return n, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//Personal.AI order the ending
