//go:build !unix

package export

import (
	"os"
	"time"
)

// lutimes falls back to os.Chtimes where no symlink-aware call exists. This
// follows the link, so it is best effort: the failure is logged and the
// export continues.
func lutimes(path string, mtime time.Time) error {
	return os.Chtimes(path, mtime, mtime)
}
