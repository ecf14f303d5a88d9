// Package program maintains the table of known stations the RDS decoder has
// observed, keyed by their 16-bit Program Identification (PI) code.
package program

import "sync"

// PSName is the 8-character program-service name, assembled two characters
// at a time from RDS group type 0A.
type PSName [8]byte

// String renders the name, trimming trailing padding.
func (n PSName) String() string {
	i := len(n)
	for i > 0 && n[i-1] == 0 {
		i--
	}
	return string(n[:i])
}

// Record is everything the decoder knows about one station, created the
// first time its PI code is referenced and never removed for the life of
// the process.
type Record struct {
	PI   uint16
	Freq float64 // MHz, last observed tuning frequency
	Name PSName
	TP   bool // traffic-program flag
	TA   bool // last-seen traffic-announcement flag
	MS   bool // last-seen music/speech switch flag
	PTY  int  // program-type index, 0-31
	AF   []float64
}

// AddAF records an alternate frequency for this program, ignoring
// duplicates (within 0.01 MHz, since AF bytes only resolve to 100 kHz
// steps).
func (r *Record) AddAF(mhz float64) {
	for _, f := range r.AF {
		if absf(f-mhz) < 0.01 {
			return
		}
	}
	r.AF = append(r.AF, mhz)
}

// Table is an append-only, PI-keyed collection of Records. The zero value is
// ready to use. A Table is safe for concurrent use, though the RDS reader
// loop is single-threaded and never needs the locking in practice.
type Table struct {
	mu      sync.Mutex
	records []*Record
}

// GetOrCreate returns the stable Record for pi, appending a new
// zero-initialized one if this is the first time pi has been seen. The
// returned pointer remains valid for the life of the Table.
func (t *Table) GetOrCreate(pi uint16) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.records {
		if r.PI == pi {
			return r
		}
	}
	r := &Record{PI: pi}
	t.records = append(t.records, r)
	return r
}

// Lookup returns the Record for pi without creating one, and whether it was
// found.
func (t *Table) Lookup(pi uint16) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.records {
		if r.PI == pi {
			return r, true
		}
	}
	return nil, false
}

// Len reports how many distinct PI codes are known.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// indexOfFrequency locates the first record whose frequency matches
// current within tolerance MHz, returning -1 if none match.
func (t *Table) indexOfFrequency(current, tolerance float64) int {
	for i, r := range t.records {
		if absf(r.Freq-current) <= tolerance {
			return i
		}
	}
	return -1
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NextFrom cyclically advances from the record whose frequency matches
// current (within +/-0.09MHz) to the next record with frequency >= min,
// wrapping around the table. It reports the chosen Record, whether the
// sweep wrapped back to the starting entry without finding another usable
// station, and whether a starting entry was found at all.
//
// This mirrors the tuning behaviour of the "next program" keyboard command:
// the caller is responsible for retuning the radio and emitting the
// appropriate notification based on the returned flags.
func (t *Table) NextFrom(current, min float64) (next *Record, wrapped bool, found bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.records)
	if n == 0 {
		return nil, false, false
	}

	start := t.indexOfFrequency(current, 0.09)
	if start == -1 {
		return nil, false, false
	}

	for step := 1; step <= n; step++ {
		idx := (start + step) % n
		if idx == start {
			return nil, true, true
		}
		if t.records[idx].Freq >= min {
			return t.records[idx], false, true
		}
	}
	return nil, true, true
}
