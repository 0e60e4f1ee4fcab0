package workspace

import (
	"fmt"
	"os"
	"sync"
)

// chdirMu serializes ownership of the process working directory.
var chdirMu sync.Mutex

// Chdir changes the process working directory to dir and returns a function
// restoring the previous one. The working directory stays exclusively held
// until restore is called; a second Chdir blocks until then.
func Chdir(dir string) (restore func() error, err error) {
	chdirMu.Lock()

	prev, err := os.Getwd()
	if err != nil {
		chdirMu.Unlock()
		return nil, fmt.Errorf("workspace: get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		chdirMu.Unlock()
		return nil, fmt.Errorf("workspace: change directory to '%s': %w", dir, err)
	}

	var once sync.Once
	return func() error {
		var restoreErr error
		once.Do(func() {
			defer chdirMu.Unlock()
			if err := os.Chdir(prev); err != nil {
				restoreErr = fmt.Errorf("workspace: restore working directory '%s': %w", prev, err)
			}
		})
		return restoreErr
	}, nil
}
