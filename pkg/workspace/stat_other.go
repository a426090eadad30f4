//go:build !linux && !darwin

package workspace

import "os"

// dev/ino/uid/gid 不可用，保持为 0
func fillSys(*FileStat, os.FileInfo) {}
