package radio

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// pollTimeoutMillis is how long the block reader waits for RDS data or a
// keystroke before emitting a heartbeat in verbose mode.
const pollTimeoutMillis = 1000

// Keys dispatches the keyboard protocol described in the keyboard
// multiplexer component. It is consulted inline by Reader.Run whenever
// stdin becomes readable, on the same thread as block processing.
type Keys struct {
	Tuner   *Tuner
	Decoder *Decoder
	Notify  *Notifier
	Verbose int

	stepMHz float64
}

// NewKeys returns a Keys handler with the default 0.05MHz step size.
func NewKeys(tuner *Tuner, decoder *Decoder, notify *Notifier) *Keys {
	return &Keys{Tuner: tuner, Decoder: decoder, Notify: notify, stepMHz: 0.05}
}

// Handle processes a single keystroke byte.
func (k *Keys) Handle(b byte) {
	switch b {
	case 'n':
		k.nextProgram()
	case '+':
		k.step(k.stepMHz)
	case '-':
		k.step(-k.stepMHz)
	default:
		k.Notify.Verbosef("key: %d (0x%x)", b, b)
	}
}

func (k *Keys) nextProgram() {
	freq, err := k.Tuner.Frequency()
	if err != nil {
		k.Notify.Verbosef("next-program: %v", err)
		return
	}

	next, wrapped, found := k.Decoder.Programs.NextFrom(freq, k.Tuner.MinMHz)
	if !found {
		return
	}
	if wrapped {
		k.Notify.NoOtherStations()
		return
	}

	if err := k.Tuner.SetFrequency(next.Freq); err != nil {
		k.Notify.Verbosef("next-program: %v", err)
		return
	}
	k.Decoder.Tune(next.Freq)

	if name := next.Name.String(); name != "" {
		k.Notify.SwitchingTo(name, next.Freq)
	}
}

func (k *Keys) step(delta float64) {
	freq, err := k.Tuner.Frequency()
	if err != nil {
		k.Notify.Verbosef("step: %v", err)
		return
	}

	freq += delta
	if freq > k.Tuner.MaxMHz {
		freq = k.Tuner.MinMHz
	} else if freq < k.Tuner.MinMHz {
		freq = k.Tuner.MaxMHz
	}

	if err := k.Tuner.SetFrequency(freq); err != nil {
		k.Notify.Verbosef("step: %v", err)
		return
	}
	k.Decoder.Tune(freq)
	k.Notify.FrequencyTuned(freq)
}

// Reader multiplexes the tuner's RDS file descriptor with standard input,
// feeding 3-byte RDS records to a Decoder and keystrokes to a Keys
// handler. It is the single-threaded cooperative loop described by the
// concurrency model: no operation here suspends outside the poll call.
type Reader struct {
	RDSFile *os.File
	Stdin   *os.File
	Decoder *Decoder
	Keys    *Keys
	Notify  *Notifier
	Verbose int

	quit chan struct{}
}

// NewReader builds a Reader over an already-open RDS file descriptor.
func NewReader(rds *os.File, decoder *Decoder, keys *Keys, notify *Notifier) *Reader {
	return &Reader{
		RDSFile: rds,
		Stdin:   os.Stdin,
		Decoder: decoder,
		Keys:    keys,
		Notify:  notify,
		quit:    make(chan struct{}),
	}
}

// Stop requests that Run return after its current poll cycle.
func (r *Reader) Stop() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
}

// Run polls the RDS descriptor and stdin until the file reaches EOF or
// Stop is called.
func (r *Reader) Run() error {
	rdsFd := int(r.RDSFile.Fd())
	stdinFd := int(r.Stdin.Fd())

	buf := make([]byte, 3)

	for {
		select {
		case <-r.quit:
			return nil
		default:
		}

		fds := []unix.PollFd{
			{Fd: int32(rdsFd), Events: unix.POLLIN},
			{Fd: int32(stdinFd), Events: unix.POLLIN},
		}

		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			if r.Verbose > 0 {
				r.Notify.Verbosef("no RDS data")
			}
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			if done, err := r.readBlock(buf); err != nil {
				return err
			} else if done {
				return nil
			}
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			r.readKey()
		}
	}
}

// readBlock reads one 3-byte RDS record and feeds it to the decoder. It
// reports io.EOF-equivalent termination via its bool return.
func (r *Reader) readBlock(buf []byte) (eof bool, err error) {
	n, err := r.RDSFile.Read(buf)
	if err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, newError(KindDevice, "read-rds", err)
	}
	if n == 0 {
		return true, nil
	}
	if n != 3 {
		r.Notify.Verbosef("%v", newError(KindShortRead, "read-rds", nil))
		return false, nil
	}

	lsb, msb, block := buf[0], buf[1], buf[2]
	blockNum := int(block & 0x07)
	errFlag := block&0x80 != 0
	word := uint16(msb)<<8 | uint16(lsb)

	r.Decoder.HandleBlock(blockNum, word, errFlag)
	return false, nil
}

func (r *Reader) readKey() {
	buf := make([]byte, 1)
	n, err := r.Stdin.Read(buf)
	if err != nil || n == 0 {
		return
	}
	r.Keys.Handle(buf[0])
}
