package resolver

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/vietddude/dexcache/internal/core/domain"
)

// Normalize builds a view from a raw catalog payload. Missing paths take
// defaults; identifier falls back to key. The second return value is false
// when payload is not valid JSON, in which case the view is minimal.
func Normalize(key, payload, sourceURL string) (*domain.NormalizedView, bool) {
	if !gjson.Valid(payload) {
		return domain.MinimalView(0, key, sourceURL), false
	}

	root := gjson.Parse(payload)
	view := domain.MinimalView(root.Get("id").Int(), key, sourceURL)

	if ident := root.Get("identifier"); ident.Exists() && ident.Type != gjson.Null {
		view.Identifier = ident.String()
	}

	arrayOf(root, "types").ForEach(func(_, t gjson.Result) bool {
		if name := t.Get("type.identifier"); name.Exists() && name.Type != gjson.Null {
			view.Types = append(view.Types, name.String())
		}
		return true
	})

	arrayOf(root, "stats").ForEach(func(_, s gjson.Result) bool {
		name := s.Get("stat.identifier")
		if !name.Exists() || name.Type == gjson.Null {
			return true
		}
		view.BaseStats[name.String()] = s.Get("base_stat").Int()
		return true
	})

	if sprites := root.Get("sprites"); sprites.IsObject() {
		sprites.ForEach(func(k, v gjson.Result) bool {
			switch v.Type {
			case gjson.Null:
				view.Sprites[k.String()] = nil
			case gjson.String:
				s := v.String()
				view.Sprites[k.String()] = &s
			default:
				s := string(pretty.Ugly([]byte(v.Raw)))
				view.Sprites[k.String()] = &s
			}
			return true
		})
	}

	arrayOf(root, "abilities").ForEach(func(_, a gjson.Result) bool {
		if name := a.Get("ability.identifier"); name.Exists() && name.Type != gjson.Null {
			view.Abilities = append(view.Abilities, name.String())
		}
		return true
	})

	return view, true
}

// arrayOf returns the array at path, or an empty result when the value is
// missing or not an array.
func arrayOf(root gjson.Result, path string) gjson.Result {
	if v := root.Get(path); v.IsArray() {
		return v
	}
	return gjson.Result{}
}

// numericID peeks the root id of a payload, 0 when absent or unparseable.
func numericID(payload string) int64 {
	if !gjson.Valid(payload) {
		return 0
	}
	return gjson.Get(payload, "id").Int()
}
