// Package guard flips the runtime into test mode as a side effect of being
// imported. Test binaries import it blank so entrypoints guarded by
// app.InTestMode never start servers during a test run.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LATTICE_TEST_MODE") == "" {
			_ = os.Setenv("LATTICE_TEST_MODE", "1")
		}
	})
}
