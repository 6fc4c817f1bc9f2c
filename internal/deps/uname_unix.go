//go:build unix

package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func unameString() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s",
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]))
}
