package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MTECHCARE_TEST_MODE") == "" {
			_ = os.Setenv("MTECHCARE_TEST_MODE", "1")
		}
	})
}
