package platform

import "github.com/tidwall/gjson"

// searchKey walks a JSON document depth-first and collects every value
// stored under the given key, at any nesting level. Embedded payloads
// vary their envelope between page versions, so matchers search for the
// keys they need instead of hard-coding paths.
func searchKey(doc gjson.Result, key string) []gjson.Result {
	var found []gjson.Result
	var walk func(v gjson.Result)
	walk = func(v gjson.Result) {
		if !v.IsObject() && !v.IsArray() {
			return
		}
		v.ForEach(func(k, child gjson.Result) bool {
			if v.IsObject() && k.Str == key {
				found = append(found, child)
			}
			walk(child)
			return true
		})
	}
	walk(doc)
	return found
}
