//go:build unix

package export

import (
	"time"

	"golang.org/x/sys/unix"
)

// lutimes sets a symlink's own modification time. os.Chtimes always follows
// links, which would touch the target (or fail on a dangling one) instead.
func lutimes(path string, mtime time.Time) error {
	tv := unix.NsecToTimeval(mtime.UnixNano())
	return unix.Lutimes(path, []unix.Timeval{tv, tv})
}
