package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"venuechat/internal/config"
	"venuechat/internal/models"
)

type recordingFinder struct {
	mu    sync.Mutex
	calls []config.Hotspot
	fail  string
}

func (f *recordingFinder) FindNearby(ctx context.Context, lat, lng float64, meters int, filter string) ([]models.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, config.Hotspot{Lat: lat, Lng: lng, Meters: meters, Query: filter})
	if filter == f.fail && f.fail != "" {
		return nil, errors.New("provider down")
	}
	return []models.Venue{}, nil
}

func (f *recordingFinder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWarmAll_SearchesEveryHotspot(t *testing.T) {
	hotspots := []config.Hotspot{
		{Name: "a", Lat: 40.75, Lng: -73.98, Meters: 500},
		{Name: "b", Lat: 40.72, Lng: -74.00, Meters: 800, Query: "coffee"},
		{Name: "c", Lat: 40.70, Lng: -74.01, Meters: 300, Query: "pizza"},
	}
	finder := &recordingFinder{fail: "coffee"}
	w := NewWarmer(finder, hotspots, time.Hour, nil)
	w.delay = 0

	w.warmAll(context.Background())

	if len(finder.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (a failure must not stop the pass)", len(finder.calls))
	}
	for i, h := range hotspots {
		got := finder.calls[i]
		if got.Lat != h.Lat || got.Lng != h.Lng || got.Meters != h.Meters || got.Query != h.Query {
			t.Errorf("call[%d] = %+v, want %+v", i, got, h)
		}
	}
}

func TestWarmerStart_StopsOnCancel(t *testing.T) {
	finder := &recordingFinder{}
	w := NewWarmer(finder, []config.Hotspot{{Name: "a", Lat: 1, Lng: 1, Meters: 100}}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for finder.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("warmer did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
