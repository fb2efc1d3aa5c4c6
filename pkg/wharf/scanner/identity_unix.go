//go:build linux || darwin

package scanner

import "golang.org/x/sys/unix"

// fileIdentity returns the inode change time and inode number of path.
func fileIdentity(path string) (ctime int64, inode uint64, err error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, 0, err
	}
	return st.Ctim.Nano(), uint64(st.Ino), nil
}
