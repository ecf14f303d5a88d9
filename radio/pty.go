package radio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ptyNames maps every 5-bit PTY code (read from block 1 of each group) to
// its label: code 0 (no programme type) plus the 31 RBDS program types,
// 32 slots in all. "Religion" and
// "Phone-in" are kept as two distinct entries; running them together
// without a separating comma would silently concatenate the strings and
// shift every later label by one slot.
var ptyNames = [32]string{
	"No programme type",
	"News",
	"Current affairs",
	"Information",
	"Sport",
	"Education",
	"Drama",
	"Culture",
	"Science",
	"Varied",
	"Pop music",
	"Rock music",
	"Easy listening",
	"Light classical",
	"Serious classical",
	"Other music",
	"Weather",
	"Finance",
	"Children's programmes",
	"Social affairs",
	"Religion",
	"Phone-in",
	"Travel",
	"Leisure",
	"Jazz music",
	"Country music",
	"National music",
	"Oldies music",
	"Folk music",
	"Documentary",
	"Alarm test",
	"Alarm",
}

// ptyName returns the human-readable label for a 5-bit PTY code, or
// "Unknown" for a value outside the table.
func ptyName(pty int) string {
	if pty < 0 || pty >= len(ptyNames) {
		return "Unknown"
	}
	return ptyNames[pty]
}

// LoadPTYOverrides reads a YAML mapping of PTY code to display name from
// path and applies it over the built-in table, for deployments covering a
// regional RBDS variant with different label text. Unknown keys outside
// [0,31] are rejected; the built-in table is left untouched on any error.
func LoadPTYOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overrides map[int]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}

	for pty := range overrides {
		if pty < 0 || pty >= len(ptyNames) {
			return newError(KindDecode, "load-pty-overrides", fmt.Errorf("pty code %d out of range", pty))
		}
	}
	for pty, name := range overrides {
		ptyNames[pty] = name
	}
	return nil
}

// tmcDurationLabels maps the 3-bit continuity/duration code of an 8A
// single-group TMC message to its fixed label.
var tmcDurationLabels = [8]string{
	"unknown",
	"15 minutes",
	"30 minutes",
	"1 hour",
	"2 hours",
	"3 hour",
	"4 hour",
	"rest of the day",
}
