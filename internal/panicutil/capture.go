package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Capture runs f and converts the ways it can end abnormally into something the caller can handle.
//
//   - normal return: the error returned from f.
//   - panic: the recovered value as *panics.ErrRecovered.
//   - runtime.Goexit: onGoexit is called (if non-nil) while the goroutine unwinds, and Capture never returns.
func Capture(f func() error, onGoexit func()) (err error) {
	var (
		returned  bool
		panicked  bool
		recovered panics.Recovered
	)
	defer func() {
		if !returned && !panicked && onGoexit != nil {
			onGoexit()
		}
	}()
	func() {
		defer func() {
			if returned {
				return
			}
			// recover() is nil for Goexit, which is told apart from a panic by the outer defer.
			if r := recover(); r != nil {
				recovered = panics.NewRecovered(1, r)
				panicked = true
			}
		}()
		err = f()
		returned = true
	}()
	if panicked {
		err = recovered.AsError()
	}
	return err
}
