package sysfs

import (
	"fmt"
	"path"
)

// InputNamePath is the name node of input device index.
func InputNamePath(index int) string {
	return path.Join(InputPath, fmt.Sprintf("input%d", index), "name")
}

// InputEnabledPath is the enable switch of input device index.
func InputEnabledPath(index int) string {
	return path.Join(InputPath, fmt.Sprintf("input%d", index), "enabled")
}

// EnumerateInputs calls fn for input0, input1, ... until the next index
// has no name node or fn returns false.
func (fs *FS) EnumerateInputs(fn func(index int, name string) bool) {
	for i := 0; ; i++ {
		namePath := InputNamePath(i)
		if !fs.Exists(namePath) {
			return
		}

		name, err := fs.Read(namePath)
		if err != nil {
			fs.logger.Debug().Err(err).Int("index", i).Msg("Unreadable input device name")
		}

		if !fn(i, name) {
			return
		}
	}
}
