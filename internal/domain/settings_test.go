package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultFontSizeForAge(t *testing.T) {
	tests := []struct {
		age  int
		want FontSize
	}{
		{5, FontSizeLarge},
		{12, FontSizeLarge},
		{13, FontSizeMedium},
		{64, FontSizeMedium},
		{65, FontSizeLarge},
		{90, FontSizeLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultFontSizeForAge(tt.age), "age %d", tt.age)
	}
}

func TestDecodeSettings_Defaults(t *testing.T) {
	s := DecodeSettings(nil)

	assert.Equal(t, DefaultRegion, s.Region)
	assert.Equal(t, FontSizeMedium, s.FontSize)
	assert.True(t, s.LayerVisible(LayerShelters))
	assert.False(t, s.UseCurrentLocation)
}

func TestDecodeSettings_StoredValues(t *testing.T) {
	s := DecodeSettings(map[string]string{
		KeyRegion:             `"160000"`,
		KeyFontSize:           `"large"`,
		KeyMapLayers:          `{"避難所":false,"浸水想定":true}`,
		KeyUseCurrentLocation: "true",
	})

	assert.Equal(t, RegionToyama, s.Region)
	assert.Equal(t, FontSizeLarge, s.FontSize)
	assert.False(t, s.LayerVisible(LayerShelters))
	assert.True(t, s.LayerVisible("浸水想定"))
	assert.True(t, s.UseCurrentLocation)
}

func TestDecodeSettings_BareStringsAccepted(t *testing.T) {
	s := DecodeSettings(map[string]string{KeyFontSize: "small"})
	assert.Equal(t, FontSizeSmall, s.FontSize)
}

func TestDecodeSettings_MalformedFallsBack(t *testing.T) {
	s := DecodeSettings(map[string]string{
		KeyRegion:             `"999999"`,
		KeyFontSize:           `"huge"`,
		KeyMapLayers:          `{not json`,
		KeyUseCurrentLocation: "maybe",
	})

	assert.Equal(t, DefaultSettings(), s)
}

func TestDecodeSettingsForAge(t *testing.T) {
	assert.Equal(t, FontSizeLarge, DecodeSettingsForAge(nil, 70).FontSize)
	assert.Equal(t, FontSizeMedium, DecodeSettingsForAge(nil, 30).FontSize)
	assert.Equal(t, FontSizeMedium, DecodeSettingsForAge(nil, 0).FontSize)

	// A stored choice wins over the age default.
	stored := map[string]string{KeyFontSize: `"small"`}
	assert.Equal(t, FontSizeSmall, DecodeSettingsForAge(stored, 8).FontSize)
}

func TestSettings_Apply(t *testing.T) {
	base := DefaultSettings()

	next, changed, err := base.Apply(SettingsPatch{
		FontSize:  ptr(FontSizeLarge),
		MapLayers: map[string]bool{LayerShelters: false},
	})
	require.NoError(t, err)

	assert.Equal(t, FontSizeLarge, next.FontSize)
	assert.False(t, next.LayerVisible(LayerShelters))
	assert.Equal(t, DefaultRegion, next.Region)
	assert.Equal(t, map[string]string{
		KeyFontSize:  `"large"`,
		KeyMapLayers: `{"避難所":false}`,
	}, changed)

	// The receiver is not mutated.
	assert.True(t, base.LayerVisible(LayerShelters))
}

func TestSettings_ApplyRoundTripsThroughDecode(t *testing.T) {
	next, changed, err := DefaultSettings().Apply(SettingsPatch{
		Region:             ptr(RegionFukui),
		UseCurrentLocation: ptr(true),
	})
	require.NoError(t, err)

	assert.Equal(t, next, DecodeSettings(changed))
}

func TestSettings_ApplyRejectsInvalid(t *testing.T) {
	base := DefaultSettings()

	_, _, err := base.Apply(SettingsPatch{Region: ptr(Region("000000"))})
	assert.ErrorContains(t, err, "region")

	_, _, err = base.Apply(SettingsPatch{FontSize: ptr(FontSize("xl"))})
	assert.ErrorContains(t, err, "font size")

	_, _, err = base.Apply(SettingsPatch{MapLayers: map[string]bool{"": true}})
	assert.ErrorContains(t, err, "layer")
}

func TestRegion(t *testing.T) {
	assert.True(t, RegionIshikawa.Valid())
	assert.Equal(t, "石川県", RegionIshikawa.Name())
	assert.False(t, Region("999999").Valid())
	assert.Empty(t, Region("999999").Name())
	assert.Len(t, Regions(), 4)
	for _, r := range Regions() {
		assert.True(t, r.Valid())
	}
}
