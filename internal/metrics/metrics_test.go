package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"venuechat/internal/models"
)

type fakeStats struct {
	stats models.CacheStats
	err   error
}

func (f fakeStats) GetCacheStats(ctx context.Context) (models.CacheStats, error) {
	return f.stats, f.err
}

func TestStoreCollector(t *testing.T) {
	c := NewStoreCollector(fakeStats{stats: models.CacheStats{Venues: 12, VenuesWithRooms: 3, SearchEntries: 7}}, nil)

	want := `
# HELP venuechat_search_log_entries Entries in the search log
# TYPE venuechat_search_log_entries gauge
venuechat_search_log_entries 7
# HELP venuechat_venues Venues held in the store
# TYPE venuechat_venues gauge
venuechat_venues 12
# HELP venuechat_venues_with_rooms Venues with at least one chat room
# TYPE venuechat_venues_with_rooms gauge
venuechat_venues_with_rooms 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestStoreCollector_StoreDown(t *testing.T) {
	c := NewStoreCollector(fakeStats{err: errors.New("down")}, nil)

	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("CollectAndCount() = %d, want 0 when the store is down", got)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(ProviderErrors.WithLabelValues("timeout"))
	ProviderErrors.WithLabelValues("timeout").Inc()
	if got := testutil.ToFloat64(ProviderErrors.WithLabelValues("timeout")); got != before+1 {
		t.Errorf("provider timeout counter = %v, want %v", got, before+1)
	}
}
