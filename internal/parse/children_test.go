package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildrenFlattensProfiles(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{
		"profiles": [{
			"children": [
				{"id": "child-1", "name": "Alma Jensen", "userId": 4711,
				 "institutionProfile": {"institutionName": "Nordskolen", "institutionCode": "101"}},
				{"id": "child-2", "name": "Oscar Jensen", "userId": "oscar001"}
			]
		}]
	}`)

	children, warnings, err := Children(payload)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, children, 2)

	assert.Equal(t, "child-1", children[0].ID)
	assert.Equal(t, "Alma Jensen", children[0].Name)
	assert.Equal(t, "4711", children[0].UserID, "numeric ids normalize to strings")
	assert.Equal(t, "Nordskolen", children[0].InstitutionName)
	assert.Equal(t, "101", children[0].InstitutionCode)

	assert.Equal(t, "child-2", children[1].ID)
	assert.Empty(t, children[1].InstitutionName)
}

func TestChildrenSkipsNamelessChildWithWarning(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{
		"profiles": [{
			"children": [
				{"id": "child-1", "name": "Alma Jensen"},
				{"id": "child-3"}
			]
		}]
	}`)

	children, warnings, err := Children(payload)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Len(t, warnings, 1)
	assert.Equal(t, "profiles", warnings[0].Source)
	assert.Contains(t, warnings[0].Detail, "child-3")
}

func TestChildrenRejectsUnreadablePayload(t *testing.T) {
	t.Parallel()

	_, _, err := Children(json.RawMessage(`"not an object"`))
	assert.Error(t, err)
}
