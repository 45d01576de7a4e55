package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string, fields map[string]any, created time.Time) Document {
	return Document{ID: id, Collection: "properties", Fields: fields, CreatedAt: created}
}

func TestSortDocuments_CreatedAtDesc(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []Document{
		doc("a", nil, base),
		doc("b", nil, base.Add(2*time.Hour)),
		doc("c", nil, base.Add(time.Hour)),
	}

	SortDocuments(docs, DefaultOrder)

	assert.Equal(t, []string{"b", "c", "a"}, ids(docs))
}

func TestSortDocuments_MissingFieldSortsLast(t *testing.T) {
	now := time.Now()
	docs := []Document{
		doc("x", map[string]any{}, now),
		doc("y", map[string]any{"price": 300.0}, now),
		doc("z", map[string]any{"price": 100.0}, now),
	}

	SortDocuments(docs, Order{Field: "price"})
	assert.Equal(t, []string{"z", "y", "x"}, ids(docs))

	SortDocuments(docs, Order{Field: "price", Desc: true})
	assert.Equal(t, []string{"y", "z", "x"}, ids(docs))
}

func TestSortDocuments_TiesByID(t *testing.T) {
	now := time.Now()
	docs := []Document{
		doc("b", map[string]any{"title": "same"}, now),
		doc("a", map[string]any{"title": "same"}, now),
	}
	SortDocuments(docs, Order{Field: "title"})
	assert.Equal(t, []string{"a", "b"}, ids(docs))
}

func TestDocument_MarshalJSONFlattens(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	d := doc("p1", map[string]any{"name": "Seaside Villa", "imageUrls": []string{"u1", "u2"}}, created)

	b, err := json.Marshal(d)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "p1", out["id"])
	assert.Equal(t, "Seaside Villa", out["name"])
	assert.Equal(t, []any{"u1", "u2"}, out["imageUrls"])
	assert.Equal(t, "2025-03-04T05:06:07Z", out["createdAt"])
	assert.NotContains(t, out, "updatedAt")
}

func TestDocument_Strings(t *testing.T) {
	d := doc("r1", map[string]any{
		"profileimage": "https://cdn/x.png",
		"imageUrls":    []any{"a", 3, "b"},
		"empty":        "",
	}, time.Now())

	assert.Equal(t, []string{"https://cdn/x.png"}, d.Strings("profileimage"))
	assert.Equal(t, []string{"a", "b"}, d.Strings("imageUrls"))
	assert.Nil(t, d.Strings("empty"))
	assert.Nil(t, d.Strings("missing"))
}

func TestDocument_CloneIsDeep(t *testing.T) {
	d := doc("p1", map[string]any{"features": []string{"pool"}}, time.Now())
	c := d.Clone()
	c.Fields["features"].([]string)[0] = "garden"
	c.Fields["name"] = "changed"

	assert.Equal(t, []string{"pool"}, d.Fields["features"])
	assert.NotContains(t, d.Fields, "name")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1250000", FormatNumber(1250000))
	assert.Equal(t, "2.5", FormatNumber(2.5))
}

func TestSnapshotState(t *testing.T) {
	assert.Equal(t, PageEmpty, Snapshot{}.State())
	assert.Equal(t, PagePopulated, Snapshot{Documents: []Document{{ID: "a"}}}.State())
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
