package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches the process into test mode: binaries return before
// opening backends, passwords hash at the minimum bcrypt cost and request
// logging is disabled.
const TestModeEnv = "ODYSSEY_IAM_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
})

// InTestMode reports whether test mode was enabled when first asked.
func InTestMode() bool {
	return testMode()
}
