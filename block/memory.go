package block

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// newMemoryStream wraps a plain byte slice as an io.ReadWriteSeeker, the same
// way the teacher's test harness turns a decompressed disk image into a
// seekable stream without touching the filesystem.
func newMemoryStream(backing []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(backing)
}
