//go:build !windows

package hostimport

import "golang.org/x/sys/unix"

// chmodExecutable ORs in the owner/group/other execute bits, matching
// what a package manager's post-install chmod +x would do, without
// clobbering the file's existing read/write bits.
func chmodExecutable(path string) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return err
	}
	return unix.Chmod(path, uint32(st.Mode)|0o111)
}
