package radio

import (
	"fmrds/clock"
	"fmrds/program"
)

// Decoder accumulates 3-byte RDS block records into 8-byte groups, updates
// the program model, and emits the human-readable lines described in the
// external interfaces section. One Decoder belongs to exactly one RDS
// loop; it is not safe for concurrent use.
type Decoder struct {
	Programs *program.Table
	Notify   *Notifier
	MinMHz   float64
	Verbose  int

	acc [8]byte

	last     [8]byte
	haveLast bool

	groupType int
	abFlag    int

	afRemaining int

	rt       [64]byte
	rtLast   string
	rtAB     bool
	rtABSeen bool

	ps     [8]byte
	psLast string

	stereoKnown bool
	stereo      bool
	taKnown     bool
	ta          bool

	current     *program.Record
	currentFreq float64

	decodeErrors int
}

// NewDecoder returns a Decoder ready to receive blocks. minMHz is the
// tuner's configured minimum frequency, used by the alternate-frequency
// and EON handling to reject spurious low readings.
func NewDecoder(programs *program.Table, notify *Notifier, minMHz float64) *Decoder {
	d := &Decoder{Programs: programs, Notify: notify, MinMHz: minMHz}
	for i := range d.rt {
		d.rt[i] = ' '
	}
	for i := range d.ps {
		d.ps[i] = ' '
	}
	return d
}

// Tune tells the decoder the frequency the tuner is now on, so that newly
// created program records carry the right frequency and AF matching has a
// reference point.
func (d *Decoder) Tune(mhz float64) {
	d.currentFreq = mhz
}

// HandleBlock processes one successfully delivered RDS block. blockNum is
// 0-3; word is the block's 16-bit content (MSB:LSB); errFlag marks a block
// the tuner flagged as uncorrectable, which is counted and otherwise
// ignored per the decode-error handling rule.
func (d *Decoder) HandleBlock(blockNum int, word uint16, errFlag bool) {
	if errFlag {
		d.decodeErrors++
		if d.Verbose > 1 {
			d.Notify.Verbosef("decode error on block %d (total %d)", blockNum, d.decodeErrors)
		}
		return
	}
	if blockNum < 0 || blockNum > 3 {
		return
	}

	d.acc[2*blockNum] = byte(word >> 8)
	d.acc[2*blockNum+1] = byte(word)

	switch blockNum {
	case 0:
		d.onBlock0(word)
	case 1:
		d.onBlock1(word)
	case 3:
		d.onGroupComplete()
	}
}

func (d *Decoder) onBlock0(pi uint16) {
	rec := d.Programs.GetOrCreate(pi)
	rec.Freq = d.currentFreq
	d.current = rec
}

func (d *Decoder) onBlock1(word uint16) {
	groupType := int(word>>12) & 0xF
	abFlag := int(word>>11) & 0x1
	pty := int(word>>5) & 0x1F

	d.groupType = groupType
	d.abFlag = abFlag

	if d.current == nil {
		return
	}
	if pty != 0 && pty != d.current.PTY {
		d.current.PTY = pty
		d.Notify.ProgramType(ptyName(pty))
	}
}

func (d *Decoder) onGroupComplete() {
	acc := d.acc
	defer func() {
		d.last = acc
		d.haveLast = true
		d.acc = [8]byte{}
	}()

	if d.haveLast && d.last == acc {
		return
	}

	switch {
	case d.groupType == 0 && d.abFlag == 0:
		d.dispatch0A()
	case d.groupType == 2 && d.abFlag == 0:
		d.dispatch2A()
	case d.groupType == 4 && d.abFlag == 0:
		d.dispatch4A()
	case d.groupType == 8 && d.abFlag == 0:
		d.dispatch8A()
	case d.groupType == 14 && d.abFlag == 0:
		d.dispatch14A()
	default:
		if d.Verbose > 1 {
			d.Notify.Verbosef("group %d%s: % x", d.groupType, abLabel(d.abFlag), d.acc)
		}
	}
}

func abLabel(ab int) string {
	if ab == 1 {
		return "B"
	}
	return "A"
}

// dispatch0A handles basic tuning and switching information.
func (d *Decoder) dispatch0A() {
	if d.current == nil {
		return
	}

	tp := d.acc[2]&0x04 != 0
	d.current.TP = tp

	// Music/Speech switch flag: recorded on the program record, never
	// emitted as a notification line of its own.
	d.current.MS = d.acc[3]&0x08 != 0

	ta := d.acc[3]&0x10 != 0
	if !d.taKnown || ta != d.ta {
		d.taKnown = true
		d.ta = ta
		d.current.TA = ta
		d.Notify.TrafficAnnouncement(ta)
	}

	di := int(d.acc[3] & 0x03)
	if di == 3 {
		stereo := d.acc[3]&0x04 != 0
		if !d.stereoKnown || stereo != d.stereo {
			d.stereoKnown = true
			d.stereo = stereo
			d.Notify.Stereo(stereo)
		}
	}

	index := di << 1
	d.ps[index] = d.acc[6]
	d.ps[index+1] = d.acc[7]
	if index == 6 {
		name := trimTrailing(d.ps[:])
		if name != "" && name != d.psLast {
			d.psLast = name
			d.Notify.Program(name)
		}
		copy(d.current.Name[:], d.ps[:])
	}

	d.handleAF()
}

// handleAF consumes the alternate-frequency field carried in bytes 4,5 of
// every 0A group: a byte 4 value in [224,249] introduces a list of
// (byte4 - 224) remaining frequencies, and subsequent 0A groups carry
// pairs (f1, f2) until the counter reaches zero. Discovered frequencies
// are recorded on the current program rather than only counted, since a
// caller can put a station's AF list to immediate use when tuning fails.
func (d *Decoder) handleAF() {
	b4, b5 := d.acc[4], d.acc[5]

	if b4 >= 224 && b4 <= 249 {
		d.afRemaining = int(b4) - 224
		return
	}
	if d.afRemaining <= 0 || d.current == nil {
		return
	}

	for _, b := range [2]byte{b4, b5} {
		if d.afRemaining <= 0 {
			break
		}
		d.current.AddAF(afFrequency(b))
		d.afRemaining--
	}
}

// afFrequency converts an AF byte to MHz using the RBDS formula.
func afFrequency(b byte) float64 {
	return (100*(float64(b)-1) + 87600) / 1000
}

// dispatch2A handles radio-text.
func (d *Decoder) dispatch2A() {
	index := int(d.acc[3] & 0x0F)
	ab := d.acc[3]&0x10 != 0

	if d.rtABSeen && ab != d.rtAB {
		text := trimTrailing(d.rt[:])
		if text != "" {
			d.rtLast = text
			d.Notify.Text(text)
		}
		for i := range d.rt {
			d.rt[i] = ' '
		}
	}
	d.rtABSeen = true
	d.rtAB = ab

	pos := 4 * index
	if pos+4 > len(d.rt) {
		return
	}
	copy(d.rt[pos:pos+4], d.acc[4:8])
}

// dispatch4A handles the clock/date group. MJD spans blocks 1-2; the hour
// spans blocks 2-3; the minute and the signed offset are in block 3.
func (d *Decoder) dispatch4A() {
	mjd := (int(d.acc[3]&0x03) << 15) | (int(d.acc[4]) << 7) | (int(d.acc[5]) >> 1)
	hour := (int(d.acc[5]&0x01) << 4) | (int(d.acc[6]) >> 4)
	minute := (int(d.acc[6]&0x0F) << 2) | (int(d.acc[7]) >> 6)
	negative := d.acc[7]&0x20 != 0
	offsetHalfHours := int(d.acc[7] & 0x1F)

	dt := clock.Decode(mjd, hour, minute, offsetHalfHours, negative)
	d.Notify.Date(dt.String())
}

// dispatch8A handles the traffic message channel's single-group subtype.
func (d *Decoder) dispatch8A() {
	subtype := int(d.acc[3]&0x18) >> 3
	if subtype != 1 {
		if d.Verbose > 1 {
			d.Notify.Verbosef("TMC subtype %d not decoded", subtype)
		}
		return
	}

	duration := int(d.acc[3]&0xE0) >> 5
	extent := int(d.acc[3] & 0x07)
	event := (int(d.acc[4]&0x07) << 8) | int(d.acc[5])
	location := (int(d.acc[6]) << 8) | int(d.acc[7])

	d.Notify.TMC(duration, extent, event, location)
}

// dispatch14A handles Enhanced Other Networks cross-references. Unlike
// the rest of the dispatcher, a 14A group never falls through to the
// verbose default: it is fully decoded here, matching the intended
// switch behaviour rather than an accidental extra dump of raw bytes.
func (d *Decoder) dispatch14A() {
	otherPI := (uint16(d.acc[6]) << 8) | uint16(d.acc[7])
	other := d.Programs.GetOrCreate(otherPI)

	variant := int(d.acc[3] & 0x0F)

	switch {
	case variant >= 0 && variant <= 3:
		pos := 2 * variant
		other.Name[pos] = d.acc[4]
		other.Name[pos+1] = d.acc[5]

	case variant == 5:
		f1 := afFrequency(d.acc[4])
		f2 := afFrequency(d.acc[5])
		if d.current != nil && d.current.Freq >= d.MinMHz && absf(f1-d.current.Freq) <= 0.04 {
			other.Freq = f2
		}

	case variant == 0xD:
		tpon := d.acc[3]&0x10 != 0
		taon := d.acc[5]&0x01 != 0
		if tpon {
			if taon && !other.TA {
				other.TA = true
				d.Notify.Verbosef("EON: traffic announcement on for PI %04X", otherPI)
			} else if !taon && other.TA {
				other.TA = false
				d.Notify.Verbosef("EON: traffic announcement off for PI %04X", otherPI)
			}
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// trimTrailing right-trims spaces, carriage returns, and NULs.
func trimTrailing(b []byte) string {
	i := len(b)
	for i > 0 {
		c := b[i-1]
		if c == ' ' || c == '\r' || c == 0 {
			i--
			continue
		}
		break
	}
	return string(b[:i])
}

// DecodeErrors reports the running count of blocks flagged uncorrectable.
func (d *Decoder) DecodeErrors() int { return d.decodeErrors }
