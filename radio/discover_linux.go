package radio

import (
	"context"
	"sort"
	"strings"

	"github.com/jochenvg/go-udev"
)

// DiscoverDevices enumerates /dev/radioN character devices currently
// registered under the video4linux subsystem, sorted by device node name.
// It is used to pick a sensible default device path when none was given
// on the command line.
func DiscoverDevices() ([]string, error) {
	u := udev.Udev{}
	enumerate := u.NewEnumerate()
	if err := enumerate.AddMatchSubsystem("video4linux"); err != nil {
		return nil, newError(KindDevice, "udev-enumerate", err)
	}

	devices, err := enumerate.Devices()
	if err != nil {
		return nil, newError(KindDevice, "udev-enumerate", err)
	}

	var nodes []string
	for _, dev := range devices {
		node := dev.Devnode()
		if strings.HasPrefix(node, "/dev/radio") {
			nodes = append(nodes, node)
		}
	}
	sort.Strings(nodes)
	return nodes, nil
}

// WatchDevices streams /dev/radioN add/remove events from the kernel's
// udev netlink socket until ctx is cancelled. added is true for an "add"
// action, false for "remove".
func WatchDevices(ctx context.Context, notify func(node string, added bool)) error {
	u := udev.Udev{}
	monitor := u.NewMonitorFromNetlink("udev")
	if err := monitor.FilterAddMatchSubsystem("video4linux"); err != nil {
		return newError(KindDevice, "udev-monitor", err)
	}

	ch, err := monitor.DeviceChan(ctx)
	if err != nil {
		return newError(KindDevice, "udev-monitor", err)
	}

	for dev := range ch {
		node := dev.Devnode()
		if !strings.HasPrefix(node, "/dev/radio") {
			continue
		}
		notify(node, dev.Action() == "add")
	}
	return nil
}
