package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// FontSize is the display text size tier.
type FontSize string

const (
	FontSizeSmall  FontSize = "small"
	FontSizeMedium FontSize = "medium"
	FontSizeLarge  FontSize = "large"
)

// Valid reports whether f is a known tier.
func (f FontSize) Valid() bool {
	switch f {
	case FontSizeSmall, FontSizeMedium, FontSizeLarge:
		return true
	}
	return false
}

// DefaultFontSizeForAge picks the initial tier for a user's age: children and
// seniors start on large text.
func DefaultFontSizeForAge(age int) FontSize {
	switch {
	case age <= 12:
		return FontSizeLarge
	case age <= 64:
		return FontSizeMedium
	default:
		return FontSizeLarge
	}
}

// LayerShelters is the map layer showing shelter pins.
const LayerShelters = "避難所"

// Keys under which settings are persisted in the key-value store.
const (
	KeyRegion             = "region"
	KeyFontSize           = "fontSize"
	KeyMapLayers          = "mapLayers"
	KeyUseCurrentLocation = "useCurrentLocation"
)

// Settings are the user display preferences shared by every screen.
type Settings struct {
	Region             Region          `json:"region"`
	FontSize           FontSize        `json:"fontSize"`
	MapLayers          map[string]bool `json:"mapLayers"`
	UseCurrentLocation bool            `json:"useCurrentLocation"`
}

// SettingsPatch is a partial update; nil fields are left unchanged. MapLayers
// entries are merged into the stored layer map.
type SettingsPatch struct {
	Region             *Region         `json:"region,omitempty"`
	FontSize           *FontSize       `json:"fontSize,omitempty"`
	MapLayers          map[string]bool `json:"mapLayers,omitempty"`
	UseCurrentLocation *bool           `json:"useCurrentLocation,omitempty"`
}

// DefaultSettings returns the settings of a user who has saved nothing.
func DefaultSettings() Settings {
	return Settings{
		Region:    DefaultRegion,
		FontSize:  FontSizeMedium,
		MapLayers: map[string]bool{LayerShelters: true},
	}
}

// LayerVisible reports whether a map layer is shown. Unknown layers are hidden.
func (s Settings) LayerVisible(layer string) bool {
	return s.MapLayers[layer]
}

// DecodeSettings builds Settings from stored key-value pairs. Missing or
// malformed values fall back to their defaults.
func DecodeSettings(kv map[string]string) Settings {
	s := DefaultSettings()

	if r := Region(decodeString(kv[KeyRegion])); r.Valid() {
		s.Region = r
	}
	if f := FontSize(decodeString(kv[KeyFontSize])); f.Valid() {
		s.FontSize = f
	}
	if raw, ok := kv[KeyMapLayers]; ok {
		var layers map[string]bool
		if err := json.Unmarshal([]byte(raw), &layers); err == nil {
			for k, v := range layers {
				s.MapLayers[k] = v
			}
		}
	}
	if raw, ok := kv[KeyUseCurrentLocation]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			s.UseCurrentLocation = v
		}
	}
	return s
}

// DecodeSettingsForAge is DecodeSettings, except that a user without a stored
// font size gets the tier for their age. age <= 0 means unknown.
func DecodeSettingsForAge(kv map[string]string, age int) Settings {
	s := DecodeSettings(kv)
	if age > 0 && !FontSize(decodeString(kv[KeyFontSize])).Valid() {
		s.FontSize = DefaultFontSizeForAge(age)
	}
	return s
}

// Apply validates a patch against s and returns the merged settings together
// with the key-value pairs that need to be persisted.
func (s Settings) Apply(p SettingsPatch) (Settings, map[string]string, error) {
	next := s
	next.MapLayers = make(map[string]bool, len(s.MapLayers)+len(p.MapLayers))
	for k, v := range s.MapLayers {
		next.MapLayers[k] = v
	}
	changed := make(map[string]string)

	if p.Region != nil {
		if !p.Region.Valid() {
			return s, nil, fmt.Errorf("unsupported region %q", *p.Region)
		}
		next.Region = *p.Region
		changed[KeyRegion] = encodeString(string(next.Region))
	}
	if p.FontSize != nil {
		if !p.FontSize.Valid() {
			return s, nil, fmt.Errorf("unsupported font size %q", *p.FontSize)
		}
		next.FontSize = *p.FontSize
		changed[KeyFontSize] = encodeString(string(next.FontSize))
	}
	if len(p.MapLayers) > 0 {
		for k, v := range p.MapLayers {
			if k == "" {
				return s, nil, errors.New("empty layer name")
			}
			next.MapLayers[k] = v
		}
		raw, err := json.Marshal(next.MapLayers)
		if err != nil {
			return s, nil, fmt.Errorf("encode map layers: %w", err)
		}
		changed[KeyMapLayers] = string(raw)
	}
	if p.UseCurrentLocation != nil {
		next.UseCurrentLocation = *p.UseCurrentLocation
		changed[KeyUseCurrentLocation] = strconv.FormatBool(next.UseCurrentLocation)
	}
	return next, changed, nil
}

// String values are stored JSON-encoded, the way the web client writes them.
func encodeString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func decodeString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return raw
	}
	return s
}
