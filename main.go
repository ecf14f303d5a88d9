package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/term"
	flag "github.com/spf13/pflag"

	"gobot.io/x/gobot"

	"fmrds/audiobridge"
	"fmrds/program"
	"fmrds/radio"
)

var (
	device      = flag.StringP("device", "d", "", "radio device path (autodetected via udev when omitted)")
	audioDevice = flag.StringP("audio-device", "a", "", "sound card device for the audio bridge (not used to select a device: capture always opens the host default input)")
	freqMHz     = flag.Float64P("freq", "F", 0, "initial tuning frequency in MHz")
	useBridge   = flag.BoolP("bridge", "j", false, "enable the audio-server resampling bridge")
	outputFile  = flag.StringP("output", "o", "", "write captured audio to this file instead of an external encoder")
	seekOnStart = flag.BoolP("seek", "s", false, "seek upward for a station on start")
	ptyTable    = flag.String("pty-table", "", "YAML file overriding the built-in PTY name table")
	verbose     = flag.CountP("verbose", "v", "increase verbosity; repeatable")
)

func main() {
	flag.Parse()
	charmlog.SetLevel(verbosityToLevel(*verbose))

	if *ptyTable != "" {
		if err := radio.LoadPTYOverrides(*ptyTable); err != nil {
			charmlog.Fatal("load pty table", "err", err)
		}
	}

	if *device == "" {
		*device = resolveDevice()
	}

	programs := &program.Table{}
	notify := radio.NewNotifier(os.Stdout)

	tuner, err := radio.NewTuner(radio.TunerConfig{
		Device: *device,
		Log:    charmlog.Infof,
	})
	if err != nil {
		charmlog.Fatal("open tuner", "err", err)
	}

	if *seekOnStart {
		if freq, err := tuner.Seek(true); err != nil {
			charmlog.Error("seek on start", "err", err)
		} else {
			notify.FrequencyTuned(freq)
		}
	} else if *freqMHz > 0 {
		if err := tuner.SetFrequency(*freqMHz); err != nil {
			charmlog.Error("set-frequency", "err", err)
		} else {
			notify.FrequencyTuned(*freqMHz)
		}
	}

	decoder := radio.NewDecoder(programs, notify, tuner.MinMHz)
	decoder.Verbose = *verbose
	if freq, err := tuner.Frequency(); err == nil {
		decoder.Tune(freq)
	}

	keys := radio.NewKeys(tuner, decoder, notify)

	rdsFile, err := os.Open(*device)
	if err != nil {
		charmlog.Fatal("open rds stream", "err", err)
	}
	reader := radio.NewReader(rdsFile, decoder, keys, notify)
	reader.Verbose = *verbose

	devices := []gobot.Device{tuner}

	var bridge *audiobridge.Bridge
	if *useBridge {
		bridge, err = setupBridge(*audioDevice, *outputFile)
		if err != nil {
			charmlog.Fatal("audio bridge setup", "err", err)
		}
		devices = append(devices, bridge)
	}

	restoreTerm := enableRawKeyboard()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	if *verbose > 0 {
		go watchDeviceHotplug(watchCtx)
	}

	teardown := func() {
		stopWatch()
		restoreTerm()
		var result *multierror.Error
		result = multierror.Append(result, rdsFile.Close())
		result = multierror.Append(result, tuner.Halt())
		if bridge != nil {
			result = multierror.Append(result, bridge.Halt())
		}
		if err := result.ErrorOrNil(); err != nil {
			charmlog.Error("shutdown", "err", err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		reader.Stop()
		teardown()
		os.Exit(0)
	}()

	work := func() {
		go func() {
			if err := reader.Run(); err != nil {
				charmlog.Error("rds reader stopped", "err", err)
			}
			teardown()
			os.Exit(0)
		}()
	}

	robot := gobot.NewRobot("fm-monitor",
		nil,
		devices,
		work,
	)

	if err := robot.Start(); err != nil {
		restoreTerm()
		charmlog.Fatal("robot start", "err", err)
	}
}

func setupBridge(audioDevice, outputFile string) (*audiobridge.Bridge, error) {
	capture, err := audiobridge.OpenCapture(audiobridge.CaptureConfig{
		Device:     audioDevice,
		SampleRate: 96000,
		Channels:   2,
		Period:     2048,
		Periods:    4,
	})
	if err != nil {
		return nil, err
	}

	var server audiobridge.ServerPort
	if outputFile != "" {
		server, err = newFileServerPort(outputFile, 2)
		if err != nil {
			return nil, err
		}
	} else {
		server = newPipeServerPort(2)
	}

	return audiobridge.NewBridge(audiobridge.Config{
		Capture:      audiobridge.CaptureConfig{SampleRate: 96000, Channels: 2},
		Server:       server,
		ServerRate:   48000,
		TargetDelay:  4096,
		MaxDiff:      512,
		PeriodFrames: 1024,
	}, capture), nil
}

// enableRawKeyboard puts the controlling terminal into raw, unechoed
// mode so single keystrokes reach the keyboard multiplexer without
// waiting on a newline, and returns a function that restores it. When
// /dev/tty cannot be opened (no controlling terminal), it is a no-op.
func enableRawKeyboard() func() {
	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return func() {}
	}
	return func() {
		_ = t.Restore()
		_ = t.Close()
	}
}

// watchDeviceHotplug logs /dev/radioN add/remove events for the lifetime of
// ctx. It is purely diagnostic: nothing here retunes or reopens a device,
// since recovering a tuner that disappeared mid-run is out of scope.
func watchDeviceHotplug(ctx context.Context) {
	err := radio.WatchDevices(ctx, func(node string, added bool) {
		if added {
			charmlog.Info("radio device appeared", "node", node)
		} else {
			charmlog.Info("radio device removed", "node", node)
		}
	})
	if err != nil && ctx.Err() == nil {
		charmlog.Error("device watch stopped", "err", err)
	}
}

// resolveDevice asks udev for the first registered /dev/radioN node,
// falling back to the conventional default when discovery fails or turns
// up nothing (e.g. running under a kernel without udev, or in a
// container without /run/udev mounted).
func resolveDevice() string {
	nodes, err := radio.DiscoverDevices()
	if err != nil || len(nodes) == 0 {
		return "/dev/radio0"
	}
	return nodes[0]
}

func verbosityToLevel(v int) charmlog.Level {
	switch {
	case v >= 2:
		return charmlog.DebugLevel
	case v == 1:
		return charmlog.InfoLevel
	default:
		return charmlog.WarnLevel
	}
}
