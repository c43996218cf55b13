package tle

import "time"

// TLEEntry represents a single satellite's two-line element set.
type TLEEntry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// Satellite identifies a satellite in a dataset by catalog number and name.
type Satellite struct {
	NORADID int    `json:"norad_id"`
	Name    string `json:"name"`
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// TLEDataset represents a complete set of TLE data from a source.
type TLEDataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []TLEEntry
}

// NewDataset builds a dataset from parsed entries, computing the epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	if len(entries) == 0 {
		return ds
	}

	ds.EpochRange = EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}

// Lookup returns the entry with the given NORAD ID. The first occurrence wins
// when a dataset lists the same satellite twice.
func (ds *TLEDataset) Lookup(noradID int) (TLEEntry, bool) {
	for _, e := range ds.Satellites {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return TLEEntry{}, false
}

// List returns the satellite identifiers in dataset order, without duplicates.
func (ds *TLEDataset) List() []Satellite {
	seen := make(map[int]bool, len(ds.Satellites))
	out := make([]Satellite, 0, len(ds.Satellites))
	for _, e := range ds.Satellites {
		if seen[e.NORADID] {
			continue
		}
		seen[e.NORADID] = true
		out = append(out, Satellite{NORADID: e.NORADID, Name: e.Name})
	}
	return out
}
