package tower

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func jsonKeys(t *testing.T, v any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestTowerReportShape(t *testing.T) {
	keys := jsonKeys(t, TowerReport{
		ClubID:       1,
		TowerID:      2,
		AuthorID:     3,
		Summary:      "quiet shift",
		OperatingDay: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{"club_id", "tower_id", "author_id", "summary", "body", "operating_day"} {
		require.Contains(t, keys, want)
	}
	require.NotContains(t, keys, "content")
	require.NotContains(t, keys, "user_id")
}

func TestIssueShape(t *testing.T) {
	keys := jsonKeys(t, Issue{ClubID: 1, AuthorID: 3, Title: "derail at junction"})

	for _, want := range []string{"club_id", "author_id", "title", "body", "status"} {
		require.Contains(t, keys, want)
	}
	require.NotContains(t, keys, "reported_by")
	require.NotContains(t, keys, "description")
}
