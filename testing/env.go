// Package testing holds helpers shared by the module's tests. Importing it
// enables test mode and defaults the store driver to memory.
package testing

import "os"

func init() {
	setDefault("ODYSSEY_IAM_TEST_MODE", "1")
	setDefault("STORE_DRIVER", "memory")
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
