//go:build darwin

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
	st.Created = time.Unix(sys.Ctimespec.Sec, sys.Ctimespec.Nsec)
	st.Accessed = time.Unix(sys.Atimespec.Sec, sys.Atimespec.Nsec)
	st.Dev = uint32(sys.Dev)
	st.Ino = uint32(sys.Ino)
	st.UID = sys.Uid
	st.GID = sys.Gid
}
