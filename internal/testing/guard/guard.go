// Package guard switches binaries into test mode when imported by a test, so
// their main functions return before touching Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

// envTestMode matches app.TestModeEnv.
const envTestMode = "BIZOPS_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(envTestMode) == "" {
			_ = os.Setenv(envTestMode, "1")
		}
	})
}
