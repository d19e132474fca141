package parse

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolegrid/aula-bridge/internal/model"
)

func TestDailyOverviewMapsStatusCodes(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)

	cases := []struct {
		code int
		want model.PresenceStatus
	}{
		{0, model.PresenceUnknown}, // not yet arrived
		{1, model.PresenceAbsent},  // sick
		{2, model.PresenceAbsent},  // vacation
		{3, model.PresencePresent}, // arrived
		{4, model.PresencePresent}, // field trip
		{5, model.PresencePresent}, // sleeping
		{8, model.PresencePresent}, // picked up
		{99, model.PresenceUnknown},
	}
	for _, tc := range cases {
		payload := json.RawMessage(fmt.Sprintf(`[{"status": %d}]`, tc.code))
		records, _, err := DailyOverview(payload, "child-1", day, loc)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equalf(t, tc.want, records[0].Status, "status code %d", tc.code)
	}
}

func TestDailyOverviewEmptyPayloadMeansUnknown(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)

	records, warnings, err := DailyOverview(json.RawMessage(`[]`), "child-1", day, loc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, model.PresenceUnknown, records[0].Status)
	assert.Equal(t, "2024-03-04", records[0].Date)
	assert.Nil(t, records[0].CheckIn)
}

func TestDailyOverviewAttachesClockTimes(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)

	payload := json.RawMessage(`[{
		"status": 3, "checkInTime": "07:52:00", "checkOutTime": "",
		"comment": "Hentes af mormor"
	}]`)

	records, warnings, err := DailyOverview(payload, "child-1", day, loc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)

	record := records[0]
	require.NotNil(t, record.CheckIn)
	assert.Equal(t, 7, record.CheckIn.Hour())
	assert.Equal(t, 52, record.CheckIn.Minute())
	assert.Nil(t, record.CheckOut, "blank check-out stays nil")
	assert.Equal(t, "Hentes af mormor", record.Comment)
}

func TestDailyOverviewWarnsOnBadClock(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)

	payload := json.RawMessage(`[{"status": 3, "checkInTime": "half past eight"}]`)
	records, warnings, err := DailyOverview(payload, "child-1", day, loc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.PresencePresent, records[0].Status)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Detail, "check-in")
}
