package tle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/metrics"
)

// Store holds the dataset served to the resolver and the API. Reads are
// lock-free; Source serializes every load and fetch with fetchMu.
type Store struct {
	current atomic.Pointer[TLEDataset]
	fetchMu sync.Mutex
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil before the first load.
func (s *Store) Get() *TLEDataset {
	return s.current.Load()
}

// Set publishes ds and updates the dataset-size gauge.
func (s *Store) Set(ds *TLEDataset) {
	s.current.Store(ds)
	if ds != nil {
		metrics.SetTLEDatasetCount(len(ds.Satellites))
	}
}

// Loaded reports whether a non-empty dataset is available.
func (s *Store) Loaded() bool {
	ds := s.current.Load()
	return ds != nil && len(ds.Satellites) > 0
}

// Age returns how long before now the current dataset was fetched.
func (s *Store) Age(now time.Time) (time.Duration, bool) {
	ds := s.current.Load()
	if ds == nil {
		return 0, false
	}
	return now.Sub(ds.FetchedAt), true
}

// AgeSeconds is Age in seconds at the current time, or -1 when nothing is loaded.
func (s *Store) AgeSeconds() float64 {
	age, ok := s.Age(time.Now())
	if !ok {
		return -1
	}
	return age.Seconds()
}

func (s *Store) lockFetch() { s.fetchMu.Lock() }
func (s *Store) unlockFetch() { s.fetchMu.Unlock() }
