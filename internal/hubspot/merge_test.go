package hubspot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeByIDLaterListWins(t *testing.T) {
	created := []RawRecord{
		{ID: "1", Properties: map[string]string{"dealname": "old", "amount": "10"}},
		{ID: "2", Properties: map[string]string{"dealname": "b"}},
	}
	modified := []RawRecord{
		{ID: "1", Properties: map[string]string{"dealname": "new"}},
		{ID: "3", Properties: map[string]string{"dealname": "c"}},
	}

	merged := MergeByID(created, modified)
	assert.Len(t, merged, 3)

	// First-seen order, with the later record replacing in place.
	assert.Equal(t, "1", merged[0].ID)
	assert.Equal(t, "new", merged[0].Properties["dealname"])
	assert.Empty(t, merged[0].Properties["amount"], "replacement is wholesale, not a property merge")
	assert.Equal(t, "2", merged[1].ID)
	assert.Equal(t, "3", merged[2].ID)
}

func TestMergeByIDDropsEmptyIDs(t *testing.T) {
	merged := MergeByID([]RawRecord{{ID: ""}, {ID: "1"}})
	assert.Len(t, merged, 1)
}

func TestMergeByIDDedupsWithinOneList(t *testing.T) {
	merged := MergeByID([]RawRecord{
		{ID: "1", Properties: map[string]string{"v": "a"}},
		{ID: "1", Properties: map[string]string{"v": "b"}},
	})
	assert.Len(t, merged, 1)
	assert.Equal(t, "b", merged[0].Properties["v"])
}

func TestMergePropertiesByIDUnionsProperties(t *testing.T) {
	created := []RawRecord{
		{ID: "1", Properties: map[string]string{"firstname": "Ada", "email": "ada@example.com"}},
	}
	modified := []RawRecord{
		{ID: "1", Properties: map[string]string{"firstname": "Ada L", "phone": "555"}},
	}

	merged := MergePropertiesByID(created, modified)
	assert.Len(t, merged, 1)

	props := merged[0].Properties
	assert.Equal(t, "Ada L", props["firstname"], "later non-empty value wins")
	assert.Equal(t, "ada@example.com", props["email"], "earlier-only value survives")
	assert.Equal(t, "555", props["phone"])
}

func TestMergePropertiesByIDIgnoresEmptyValues(t *testing.T) {
	merged := MergePropertiesByID(
		[]RawRecord{{ID: "1", Properties: map[string]string{"email": "ada@example.com"}}},
		[]RawRecord{{ID: "1", Properties: map[string]string{"email": ""}}},
	)
	assert.Equal(t, "ada@example.com", merged[0].Properties["email"])
}
