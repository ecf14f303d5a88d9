package radio

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// This file speaks the V4L2 ioctl dialect used by Linux's radio char
// devices (videodev2.h). The struct layouts below mirror the kernel ABI
// byte-for-byte and must not be reordered.

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	vidiocMagic = 'V'
)

// ioc reproduces Linux's _IOC(dir, type, nr, size) macro so the request
// codes below stay correct if a struct's size ever changes, rather than
// hard-coding numbers that would silently drift from the struct layout.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

var (
	vidiocQueryCap    = ioc(iocRead, vidiocMagic, 0, unsafe.Sizeof(v4l2Capability{}))
	vidiocGTuner      = ioc(iocRead|iocWrite, vidiocMagic, 29, unsafe.Sizeof(v4l2Tuner{}))
	vidiocSTuner      = ioc(iocWrite, vidiocMagic, 30, unsafe.Sizeof(v4l2Tuner{}))
	vidiocGFrequency  = ioc(iocRead|iocWrite, vidiocMagic, 56, unsafe.Sizeof(v4l2Frequency{}))
	vidiocSFrequency  = ioc(iocWrite, vidiocMagic, 57, unsafe.Sizeof(v4l2Frequency{}))
	vidiocSHwFreqSeek = ioc(iocWrite, vidiocMagic, 82, unsafe.Sizeof(v4l2HwFreqSeek{}))
	vidiocQueryCtrl   = ioc(iocRead|iocWrite, vidiocMagic, 36, unsafe.Sizeof(v4l2QueryCtrl{}))
	vidiocGCtrl       = ioc(iocRead|iocWrite, vidiocMagic, 27, unsafe.Sizeof(v4l2Control{}))
	vidiocSCtrl       = ioc(iocRead|iocWrite, vidiocMagic, 28, unsafe.Sizeof(v4l2Control{}))
)

const (
	v4l2CapRDSCapture   = 0x00000100
	v4l2TunerCapLow     = 0x00000001
	v4l2TunerModeStereo = 0x00000001

	v4l2CidAudioVolume = 0x00980905
	v4l2CidAudioMute   = 0x00980909
)

// v4l2Capability mirrors struct v4l2_capability.
type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

// v4l2Tuner mirrors struct v4l2_tuner.
type v4l2Tuner struct {
	Index      uint32
	Name       [32]byte
	Type       uint32
	Capability uint32
	RangeLow   uint32
	RangeHigh  uint32
	RXSubchans uint32
	AudMode    uint32
	Signal     int32
	AFC        int32
	Reserved   [4]uint32
}

// v4l2QueryCtrl mirrors struct v4l2_queryctrl, used to discover a control's
// advertised [minimum, maximum] range before writing to it.
type v4l2QueryCtrl struct {
	ID           uint32
	Type         uint32
	Name         [32]byte
	Minimum      int32
	Maximum      int32
	Step         int32
	DefaultValue int32
	Flags        uint32
	Reserved     [2]uint32
}

// v4l2Control mirrors struct v4l2_control.
type v4l2Control struct {
	ID    uint32
	Value int32
}

// v4l2Frequency mirrors struct v4l2_frequency.
type v4l2Frequency struct {
	Tuner     uint32
	Type      uint32
	Frequency uint32
	Reserved  [8]uint32
}

// v4l2HwFreqSeek mirrors struct v4l2_hw_freq_seek.
type v4l2HwFreqSeek struct {
	Tuner      uint32
	Type       uint32
	SeekUp     uint32
	WrapAround uint32
	Spacing    uint32
	RangeLow   uint32
	RangeHigh  uint32
	Reserved   [5]uint32
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// queryCapability reads the device's static capability flags, telling the
// caller whether RDS capture is available. The low-range capability that
// decides the frequency divider comes from queryTuner instead.
func queryCapability(fd int) (caps uint32, err error) {
	var c v4l2Capability
	if err := ioctl(fd, vidiocQueryCap, unsafe.Pointer(&c)); err != nil {
		return 0, err
	}
	return c.Capabilities, nil
}

// queryTuner reads tuner index 0's capability and mode flags.
func queryTuner(fd int) (v4l2Tuner, error) {
	t := v4l2Tuner{Index: 0}
	if err := ioctl(fd, vidiocGTuner, unsafe.Pointer(&t)); err != nil {
		return t, err
	}
	return t, nil
}

func getFrequencyRaw(fd int) (uint32, error) {
	f := v4l2Frequency{Tuner: 0, Type: 1}
	if err := ioctl(fd, vidiocGFrequency, unsafe.Pointer(&f)); err != nil {
		return 0, err
	}
	return f.Frequency, nil
}

func setFrequencyRaw(fd int, raw uint32) error {
	f := v4l2Frequency{Tuner: 0, Type: 1, Frequency: raw}
	return ioctl(fd, vidiocSFrequency, unsafe.Pointer(&f))
}

func hwSeek(fd int, upward bool, wrap bool) error {
	s := v4l2HwFreqSeek{Tuner: 0, Type: 1}
	if upward {
		s.SeekUp = 1
	}
	if wrap {
		s.WrapAround = 1
	}
	return ioctl(fd, vidiocSHwFreqSeek, unsafe.Pointer(&s))
}

func setAudioMode(fd int, muted bool) error {
	t, err := queryTuner(fd)
	if err != nil {
		return err
	}
	if muted {
		t.AudMode = 0
	} else {
		t.AudMode = v4l2TunerModeStereo
	}
	if err := ioctl(fd, vidiocSTuner, unsafe.Pointer(&t)); err != nil {
		return err
	}

	mute := v4l2Control{ID: v4l2CidAudioMute}
	if muted {
		mute.Value = 1
	}
	return ioctl(fd, vidiocSCtrl, unsafe.Pointer(&mute))
}

// volumeRange queries the device's advertised audio-volume control bounds.
func volumeRange(fd int) (min, max int32, err error) {
	q := v4l2QueryCtrl{ID: v4l2CidAudioVolume}
	if err := ioctl(fd, vidiocQueryCtrl, unsafe.Pointer(&q)); err != nil {
		return 0, 0, err
	}
	return q.Minimum, q.Maximum, nil
}

func setVolumeRaw(fd int, value int32) error {
	c := v4l2Control{ID: v4l2CidAudioVolume, Value: value}
	return ioctl(fd, vidiocSCtrl, unsafe.Pointer(&c))
}
