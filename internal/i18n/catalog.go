// Package i18n loads the embedded label catalogs used for notification text.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// supported lists the embedded catalogs. The first entry is the fallback.
var supported = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

// Catalog resolves label keys for one language, falling back to English.
type Catalog struct {
	tag      language.Tag
	data     map[string]string
	fallback map[string]string
}

// Load returns the catalog that best matches locale (a BCP 47 tag such as
// "de-AT"). An empty or unknown locale selects English.
func Load(locale string) (*Catalog, error) {
	_, idx, _ := matcher.Match(language.Make(locale))
	tag := supported[idx]

	fallback, err := readCatalog(supported[0])
	if err != nil {
		return nil, err
	}
	data := fallback
	if tag != supported[0] {
		if data, err = readCatalog(tag); err != nil {
			return nil, err
		}
	}
	return &Catalog{tag: tag, data: data, fallback: fallback}, nil
}

// Translate returns the label for key. Missing keys fall back to English
// and then to the key itself.
func (c *Catalog) Translate(key string) string {
	if v, ok := c.data[key]; ok {
		return v
	}
	if v, ok := c.fallback[key]; ok {
		return v
	}
	return key
}

// Language returns the BCP 47 tag of the selected catalog.
func (c *Catalog) Language() string {
	return c.tag.String()
}

// EventKey returns the catalog key for an event type.
func EventKey(eventType string) string {
	return "event." + eventType
}

func readCatalog(tag language.Tag) (map[string]string, error) {
	base, _ := tag.Base()
	raw, err := localesFS.ReadFile("locales/" + base.String() + ".json")
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", tag, err)
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", tag, err)
	}
	return data, nil
}
