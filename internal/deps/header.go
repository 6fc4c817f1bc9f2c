package deps

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

// writeLogHeader records the build environment at the top of the log.
func writeLogHeader(w io.Writer, jobs int) {
	fmt.Fprintf(w, "# redundans dependency build\n")
	fmt.Fprintf(w, "# started: %s\n", time.Now().Format(time.DateTime))
	fmt.Fprintf(w, "# host: %s/%s, %d cores, -j %d\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), jobs)
	if u := unameString(); u != "" {
		fmt.Fprintf(w, "# uname: %s\n", u)
	}
}
