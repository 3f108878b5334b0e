// Package govlog provides the runtime's logger: a plain *log.Logger, the
// same choice the teacher's cmd/resin makes, wrapped only so tests can
// redirect output without touching the global log package.
package govlog

import (
	"io"
	"log"
	"os"
)

// Logger is a package-level *log.Logger, written to os.Stderr by default.
// SetOutput redirects it, e.g. to a test's io.Writer.
var Logger = log.New(os.Stderr, "warden: ", log.LstdFlags)

// SetOutput redirects Logger's destination.
func SetOutput(w io.Writer) { Logger.SetOutput(w) }

// Printf logs a formatted line via Logger.
func Printf(format string, args ...any) { Logger.Printf(format, args...) }

// Println logs a line via Logger.
func Println(args ...any) { Logger.Println(args...) }
