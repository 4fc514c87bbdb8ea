package monitor

import "time"

// Snapshot is the immutable result of one detection pass.
//
// A new pass produces a new Snapshot; existing ones are never modified, so
// callers may hold and read them without locking.
type Snapshot struct {
	PassID     string
	DetectedAt time.Time

	order   []string
	records map[string]Record
}

// NewSnapshot builds a snapshot from records in the given order. Records with
// a duplicate id keep the first occurrence.
func NewSnapshot(passID string, at time.Time, records []Record) *Snapshot {
	s := &Snapshot{
		PassID:     passID,
		DetectedAt: at,
		order:      make([]string, 0, len(records)),
		records:    make(map[string]Record, len(records)),
	}
	for _, r := range records {
		if _, dup := s.records[r.ID]; dup {
			continue
		}
		s.order = append(s.order, r.ID)
		s.records[r.ID] = r.Clone()
	}
	return s
}

// Get returns a copy of the record with id.
func (s *Snapshot) Get(id string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// List returns copies of all records in detection order.
func (s *Snapshot) List() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Len returns the number of monitors.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Buses returns the set of I2C buses claimed by any record.
func (s *Snapshot) Buses() map[string]struct{} {
	buses := make(map[string]struct{})
	if s == nil {
		return buses
	}
	for _, r := range s.records {
		if r.HasDDC() {
			buses[r.I2CBus] = struct{}{}
		}
	}
	return buses
}
