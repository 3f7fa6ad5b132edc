package health

// Document is one raw embedded-health telemetry snapshot as returned by the
// iLO. The structure varies between iLO generations and firmware revisions:
// keys may be absent, categories may be encoded as maps or lists, and the
// storage data has moved around between nesting levels. The document is
// read-only to this package and is rebuilt from scratch on every poll cycle.
type Document map[string]any

// maxFindDepth bounds the FindKey recursion. The deepest observed placement
// of any category across iLO 3 through iLO 5 firmware is four levels down.
const maxFindDepth = 8

// Map returns the sub-record stored under key, or ok=false when the key is
// absent or not a record.
func (d Document) Map(key string) (Document, bool) {
	sub, ok := d[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return Document(sub), true
}

// List returns the list stored under key, or ok=false when the key is absent
// or not a list.
func (d Document) List(key string) ([]any, bool) {
	sub, ok := d[key].([]any)
	if !ok {
		return nil, false
	}
	return sub, true
}

// String returns the string stored under key, or "" when absent.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// FindKey performs a bounded-depth depth-first search for the first record
// containing key, descending through nested records and lists of records.
// This is a deliberate accommodation for the schema instability of the
// storage category, which different firmware revisions report at different
// nesting depths. It is not a general-purpose traversal primitive.
func FindKey(d Document, key string) (Document, bool) {
	return findKey(d, key, 0)
}

func findKey(d Document, key string, depth int) (Document, bool) {
	if depth > maxFindDepth {
		return nil, false
	}
	if _, ok := d[key]; ok {
		return d, true
	}
	for _, value := range d {
		switch v := value.(type) {
		case map[string]any:
			if found, ok := findKey(Document(v), key, depth+1); ok {
				return found, true
			}
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if found, ok := findKey(Document(m), key, depth+1); ok {
						return found, true
					}
				}
			}
		}
	}
	return nil, false
}
