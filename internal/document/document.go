// Package document decodes saved or imported system documents into
// fully-typed, fully-defaulted records before they reach the calculation
// engine. It is the single place where loosely-typed input is allowed to
// exist: numbers may arrive as JSON numbers or strings, optional fields may
// be absent, and older schema versions may be missing whole fields. By the
// time a Document leaves Decode, none of that ambiguity remains.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m0rg5/SolSum-1.9/internal/engine"
)

// CurrentVersion is the current document schema version. Increment when
// adding fields that need defaults for older saved documents.
//
// v1: loads, sources, battery
// v2: per-load duty cycle, per-source efficiency
// v3: enabled flags, irradiance forecast block
const CurrentVersion = 3

// Defaults applied to fields absent from older documents
const (
	defaultVoltage    = 12.0
	defaultInitialSoC = 100.0
)

// Document is the decoded, validated system snapshot
type Document struct {
	Version int                       `json:"version"`
	Loads   []engine.LoadItem         `json:"loads"`
	Sources []engine.GenerationSource `json:"sources"`
	Battery engine.BatteryConfig      `json:"battery"`
}

// Encode serializes a document at the current schema version
func Encode(doc Document) ([]byte, error) {
	doc.Version = CurrentVersion
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses raw document bytes into a typed Document. Unknown
// categories, source types, forecast modes and newer schema versions are
// errors; absent fields are defaulted per the version they were introduced
// in. Records without an identity are assigned a fresh one.
func Decode(data []byte) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("parsing document: %w", err)
	}

	if raw.Version > CurrentVersion {
		return Document{}, fmt.Errorf("document version %d is newer than supported version %d", raw.Version, CurrentVersion)
	}

	doc := Document{Version: CurrentVersion}

	for i, rl := range raw.Loads {
		load, err := rl.normalize()
		if err != nil {
			return Document{}, fmt.Errorf("load %d: %w", i, err)
		}
		doc.Loads = append(doc.Loads, load)
	}

	for i, rs := range raw.Sources {
		src, err := rs.normalize()
		if err != nil {
			return Document{}, fmt.Errorf("source %d: %w", i, err)
		}
		doc.Sources = append(doc.Sources, src)
	}

	battery, err := raw.Battery.normalize()
	if err != nil {
		return Document{}, fmt.Errorf("battery: %w", err)
	}
	doc.Battery = battery

	return doc, nil
}

type rawDocument struct {
	Version int         `json:"version"`
	Loads   []rawLoad   `json:"loads"`
	Sources []rawSource `json:"sources"`
	Battery rawBattery  `json:"battery"`
}

type rawLoad struct {
	ID           string     `json:"id"`
	Category     string     `json:"category"`
	Name         string     `json:"name"`
	Quantity     flexNumber `json:"quantity"`
	Watts        flexNumber `json:"watts"`
	HoursPerDay  flexNumber `json:"hoursPerDay"`
	DutyCyclePct flexNumber `json:"dutyCyclePct"`
	Enabled      *bool      `json:"enabled"`
	Notes        string     `json:"notes"`
}

func (r rawLoad) normalize() (engine.LoadItem, error) {
	category := engine.LoadCategory(r.Category)
	if r.Category == "" {
		category = engine.LoadDC // pre-v2 documents only had DC loads
	}
	if !category.Valid() {
		return engine.LoadItem{}, fmt.Errorf("unknown category %q", r.Category)
	}

	return engine.LoadItem{
		ID:           identity(r.ID),
		Category:     category,
		Name:         r.Name,
		Quantity:     r.Quantity.or(1),
		Watts:        r.Watts.or(0),
		HoursPerDay:  r.HoursPerDay.or(0),
		DutyCyclePct: r.DutyCyclePct.or(100), // introduced in v2
		Enabled:      enabledOrTrue(r.Enabled),
		Notes:        r.Notes,
	}, nil
}

type rawSource struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Quantity    flexNumber `json:"quantity"`
	InputWatts  flexNumber `json:"inputWatts"`
	HoursPerDay flexNumber `json:"hoursPerDay"`
	Efficiency  flexNumber `json:"efficiency"`
	Type        string     `json:"type"`
	AutoSolar   bool       `json:"autoSolar"`
	Enabled     *bool      `json:"enabled"`
}

func (r rawSource) normalize() (engine.GenerationSource, error) {
	srcType := engine.SourceType(r.Type)
	if r.Type == "" {
		srcType = engine.SourceOther
	}
	if !srcType.Valid() {
		return engine.GenerationSource{}, fmt.Errorf("unknown source type %q", r.Type)
	}

	return engine.GenerationSource{
		ID:          identity(r.ID),
		Name:        r.Name,
		Quantity:    r.Quantity.or(1),
		InputWatts:  r.InputWatts.or(0),
		HoursPerDay: r.HoursPerDay.or(0),
		Efficiency:  r.Efficiency.or(1), // introduced in v2
		Type:        srcType,
		AutoSolar:   r.AutoSolar,
		Enabled:     enabledOrTrue(r.Enabled),
	}, nil
}

type rawBattery struct {
	CapacityAh  flexNumber   `json:"capacityAh"`
	Voltage     flexNumber   `json:"voltage"`
	InitialSoC  flexNumber   `json:"initialSoC"`
	TargetMonth int          `json:"targetMonth"`
	Forecast    *rawForecast `json:"forecast"`
}

func (r rawBattery) normalize() (engine.BatteryConfig, error) {
	battery := engine.BatteryConfig{
		CapacityAh:  r.CapacityAh.or(0),
		Voltage:     r.Voltage.or(defaultVoltage),
		InitialSoC:  r.InitialSoC.or(defaultInitialSoC),
		TargetMonth: timeMonth(r.TargetMonth),
	}

	if r.Forecast != nil {
		forecast, err := r.Forecast.normalize()
		if err != nil {
			return engine.BatteryConfig{}, err
		}
		battery.Forecast = forecast
	}

	return battery, nil
}

type rawForecast struct {
	Mode        string     `json:"mode"`
	Loading     bool       `json:"loading"`
	Fetched     bool       `json:"fetched"`
	NowHours    flexNumber `json:"nowHours"`
	SunnyHours  flexNumber `json:"sunnyHours"`
	CloudyHours flexNumber `json:"cloudyHours"`
	FetchedAt   string     `json:"fetchedAt"`
	Err         string     `json:"error"`
}

func (r rawForecast) normalize() (*engine.IrradianceForecast, error) {
	mode := engine.ForecastMode(r.Mode)
	if r.Mode == "" {
		mode = engine.ForecastNow
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown forecast mode %q", r.Mode)
	}

	forecast := &engine.IrradianceForecast{
		Mode:        mode,
		Loading:     r.Loading,
		Fetched:     r.Fetched,
		NowHours:    r.NowHours.ptr(),
		SunnyHours:  r.SunnyHours.ptr(),
		CloudyHours: r.CloudyHours.ptr(),
		Err:         r.Err,
	}
	if t, err := parseTimestamp(r.FetchedAt); err == nil {
		forecast.FetchedAt = t
	}
	return forecast, nil
}

// flexNumber decodes a JSON number, a numeric string, an empty string, or
// null. Absence and emptiness stay structurally distinct from zero: or()
// falls back and ptr() returns nil for them. A present but unparseable
// value surfaces as NaN so the engine classifies it as invalid instead of
// silently reading zero, the historical defect this package exists to
// prevent.
type flexNumber struct {
	set bool
	val float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			n.set, n.val = true, math.NaN()
			return nil
		}
		n.set, n.val = true, v
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		n.set, n.val = true, math.NaN()
		return nil
	}
	n.set, n.val = true, v
	return nil
}

// or returns the decoded value, or fallback when the field was absent
func (n flexNumber) or(fallback float64) float64 {
	if !n.set {
		return fallback
	}
	return n.val
}

// ptr returns the decoded value, or nil when the field was absent
func (n flexNumber) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.val
	return &v
}

// identity parses a stored ID, assigning a fresh one for records that
// arrive without one; hand-written or imported documents often omit IDs
func identity(id string) uuid.UUID {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.New()
}

func enabledOrTrue(b *bool) bool {
	return b == nil || *b
}

// timeMonth maps a stored month number to time.Month, 0 meaning unset
func timeMonth(m int) time.Month {
	if m < 1 || m > 12 {
		return 0
	}
	return time.Month(m)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}
