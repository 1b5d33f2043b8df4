package models

// CategoryIcon maps a device category to a Material Design icon name, the
// icon set Home Assistant uses.
var CategoryIcon = map[string]string{
	"default":    "mdi:map-marker",
	"car":        "mdi:car",
	"truck":      "mdi:truck",
	"van":        "mdi:van-utility",
	"bus":        "mdi:bus",
	"motorcycle": "mdi:motorbike",
	"bicycle":    "mdi:bicycle",
	"person":     "mdi:account",
	"boat":       "mdi:ferry",
	"ship":       "mdi:ferry",
	"plane":      "mdi:airplane",
	"helicopter": "mdi:helicopter",
	"animal":     "mdi:paw",
	"trailer":    "mdi:truck-trailer",
	"tractor":    "mdi:tractor",
}

// Icon returns the icon for the device's category, falling back to the
// default marker for empty or unrecognised categories.
func (d *Device) Icon() string {
	if icon, ok := CategoryIcon[d.Category]; ok {
		return icon
	}
	return CategoryIcon["default"]
}
