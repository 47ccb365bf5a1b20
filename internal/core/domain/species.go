package domain

import "maps"

// LocalSourceURL marks a view that was served from local storage.
const LocalSourceURL = "local"

// NormalizedView is the externally visible species record.
type NormalizedView struct {
	ID         int64              `json:"id"`
	Identifier string             `json:"identifier"`
	Types      []string           `json:"types"`
	BaseStats  map[string]int64   `json:"base_stats"`
	Sprites    map[string]*string `json:"sprites"`
	Abilities  []string           `json:"abilities"`
	SourceURL  string             `json:"source_url"`
}

// MinimalView returns a view carrying only an id and identifier, with empty collections.
func MinimalView(id int64, identifier, sourceURL string) *NormalizedView {
	return &NormalizedView{
		ID:         id,
		Identifier: identifier,
		Types:      []string{},
		BaseStats:  map[string]int64{},
		Sprites:    map[string]*string{},
		Abilities:  []string{},
		SourceURL:  sourceURL,
	}
}

// Clone returns a deep copy so holders of the original never observe mutation.
func (v *NormalizedView) Clone() *NormalizedView {
	if v == nil {
		return nil
	}
	out := &NormalizedView{
		ID:         v.ID,
		Identifier: v.Identifier,
		Types:      append([]string{}, v.Types...),
		BaseStats:  maps.Clone(v.BaseStats),
		Sprites:    make(map[string]*string, len(v.Sprites)),
		Abilities:  append([]string{}, v.Abilities...),
		SourceURL:  v.SourceURL,
	}
	if out.BaseStats == nil {
		out.BaseStats = map[string]int64{}
	}
	for k, s := range v.Sprites {
		if s == nil {
			out.Sprites[k] = nil
			continue
		}
		c := *s
		out.Sprites[k] = &c
	}
	return out
}

// EnsureCollections replaces nil collections with empty ones so the view
// serializes as [] and {} after being decoded from an external source.
func (v *NormalizedView) EnsureCollections() {
	if v.Types == nil {
		v.Types = []string{}
	}
	if v.BaseStats == nil {
		v.BaseStats = map[string]int64{}
	}
	if v.Sprites == nil {
		v.Sprites = map[string]*string{}
	}
	if v.Abilities == nil {
		v.Abilities = []string{}
	}
}
