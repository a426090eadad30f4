//go:build linux

package workspace

import (
	"os"
	"syscall"
	"time"
)

func fillSys(st *FileStat, info os.FileInfo) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	st.Created = time.Unix(int64(sys.Ctim.Sec), int64(sys.Ctim.Nsec))
	st.Accessed = time.Unix(int64(sys.Atim.Sec), int64(sys.Atim.Nsec))
	st.Dev = uint32(sys.Dev)
	st.Ino = uint32(sys.Ino)
	st.UID = sys.Uid
	st.GID = sys.Gid
}
