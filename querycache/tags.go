package querycache

import "fmt"

// Tag labels a cached result so mutations can find what they make stale.
// A tag with an empty ID is a collection tag ("Movies"); a tag with an ID
// names one item ("Movies:42"). Tags match exactly.
type Tag struct {
	Type string
	ID   string
}

// ListTag returns the collection tag for typ
func ListTag(typ string) Tag {
	return Tag{Type: typ}
}

// ItemTag returns the tag for a single item of typ
func ItemTag(typ string, id any) Tag {
	return Tag{Type: typ, ID: fmt.Sprint(id)}
}

// String renders the tag as "Type" or "Type:ID"
func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

func hasAnyTag(have []Tag, want map[Tag]struct{}) bool {
	for _, t := range have {
		if _, ok := want[t]; ok {
			return true
		}
	}
	return false
}
