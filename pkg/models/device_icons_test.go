package models

import "testing"

func TestDeviceIconCoverage(t *testing.T) {
	for category, icon := range CategoryIcon {
		if icon == "" {
			t.Errorf("category %q has empty icon", category)
		}
	}
}

func TestDeviceIcon(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"truck", "mdi:truck"},
		{"person", "mdi:account"},
		{"", "mdi:map-marker"},
		{"submarine", "mdi:map-marker"},
	}
	for _, tt := range tests {
		d := Device{Category: tt.category}
		if got := d.Icon(); got != tt.want {
			t.Errorf("Device{Category: %q}.Icon() = %q, want %q", tt.category, got, tt.want)
		}
	}
}
