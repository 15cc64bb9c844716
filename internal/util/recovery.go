package util

import (
	"fmt"
	"log"
	"runtime/debug"
)

// RecoverAndLog recovers from a panic and logs it with context. It is
// deferred by main, by every SafeGo goroutine (the background loops,
// the macro price stream, the shutdown handler) and by event-bus
// dispatch, so a panic there never takes down the process.
func RecoverAndLog(context string) {
	if r := recover(); r != nil {
		log.Printf("❌ [PANIC RECOVERED] %s: %v\n%s", context, r, string(debug.Stack()))
	}
}

// SafeGo launches a goroutine with panic recovery.
func SafeGo(name string, fn func()) {
	go func() {
		defer RecoverAndLog(fmt.Sprintf("goroutine: %s", name))
		fn()
	}()
}
