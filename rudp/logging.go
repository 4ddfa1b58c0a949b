package rudp

import (
	"log/slog"
	"os"
)

var pkgLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// SetLogger replaces the package-wide logger used by Peer and Listener.
// The zero value is never passed a nil logger; callers wanting silence
// should pass slog.New(slog.NewTextHandler(io.Discard, nil)).
func SetLogger(l *slog.Logger) {
	if l != nil {
		pkgLogger = l
	}
}
