package index

import (
	"encoding/binary"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gitvault/pkg/core"
	"gitvault/pkg/types"
	"gitvault/pkg/workspace"
)

const (
	entryFixedSize = 62 // 10 个 uint32 + 20 字节 id + 2 字节 flags
	entryMinSize   = 64
	entryBlock     = 8
	maxPathSize    = 0xFFF
)

// Entry 代表暂存区中的一条记录
type Entry struct {
	CTimeSec  uint32
	CTimeNsec uint32
	MTimeSec  uint32
	MTimeNsec uint32
	Dev       uint32
	Ino       uint32
	Mode      core.FileMode
	UID       uint32
	GID       uint32
	Size      uint32
	ID        types.ObjectID
	Flags     uint16
	Path      string // 相对路径，"/" 分隔 (如 "data/model.bin")
}

// NewEntry 用工作区的 stat 信息构造一条记录
func NewEntry(p string, id types.ObjectID, st workspace.FileStat) Entry {
	p = CleanPath(p)
	return Entry{
		CTimeSec:  uint32(st.Created.Unix()),
		CTimeNsec: uint32(st.Created.Nanosecond()),
		MTimeSec:  uint32(st.Modified.Unix()),
		MTimeNsec: uint32(st.Modified.Nanosecond()),
		Dev:       st.Dev,
		Ino:       st.Ino,
		Mode:      core.ModeFor(st.Executable),
		UID:       st.UID,
		GID:       st.GID,
		Size:      uint32(st.Size),
		ID:        id,
		Flags:     uint16(min(len(p), maxPathSize)),
		Path:      p,
	}
}

// StatMatches 报告工作区文件的 size, mtime 和可执行位是否与记录一致。
// 一致时认为内容未变，不再重新计算 hash。
func (e Entry) StatMatches(st workspace.FileStat) bool {
	return e.Size == uint32(st.Size) &&
		e.MTimeSec == uint32(st.Modified.Unix()) &&
		e.MTimeNsec == uint32(st.Modified.Nanosecond()) &&
		e.Mode == core.ModeFor(st.Executable)
}

// ParentDirs 返回路径的所有祖先目录，由浅到深 ("a/b/c" -> ["a", "a/b"])
func (e Entry) ParentDirs() []string {
	var dirs []string
	for dir := path.Dir(e.Path); dir != "."; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

// encodedSize: 固定部分 + 路径 + 至少一个 NUL，补齐到 8 的倍数
func (e Entry) encodedSize() int {
	return (entryFixedSize + len(e.Path) + entryBlock) &^ (entryBlock - 1)
}

func (e Entry) appendTo(buf []byte) ([]byte, error) {
	raw, err := e.ID.Raw()
	if err != nil {
		return nil, fmt.Errorf("index entry %q: %w", e.Path, err)
	}
	for _, v := range []uint32{
		e.CTimeSec, e.CTimeNsec, e.MTimeSec, e.MTimeNsec,
		e.Dev, e.Ino, uint32(e.Mode), e.UID, e.GID, e.Size,
	} {
		buf = binary.BigEndian.AppendUint32(buf, v)
	}
	buf = append(buf, raw[:]...)
	buf = binary.BigEndian.AppendUint16(buf, e.Flags)
	buf = append(buf, e.Path...)

	pad := e.encodedSize() - entryFixedSize - len(e.Path)
	for range pad {
		buf = append(buf, 0)
	}
	return buf, nil
}

// parseEntry 解析一个完整的条目块 (长度是 8 的倍数，最后一个字节是 NUL)
func parseEntry(block []byte) (Entry, error) {
	var fields [10]uint32
	for i := range fields {
		fields[i] = binary.BigEndian.Uint32(block[i*4:])
	}
	id, err := types.ObjectIDFromRaw(block[40:60])
	if err != nil {
		return Entry{}, err
	}

	name := block[entryFixedSize:]
	nul := strings.IndexByte(string(name), 0)
	if nul <= 0 {
		return Entry{}, &FormatError{Field: "entry path", Expected: "non-empty NUL-terminated path", Found: fmt.Sprintf("%q", name)}
	}

	mode := core.FileMode(fields[6])
	if mode != core.ModeRegular && mode != core.ModeExecutable {
		return Entry{}, &FormatError{Field: "entry mode", Expected: "100644 or 100755", Found: mode.String()}
	}

	return Entry{
		CTimeSec:  fields[0],
		CTimeNsec: fields[1],
		MTimeSec:  fields[2],
		MTimeNsec: fields[3],
		Dev:       fields[4],
		Ino:       fields[5],
		Mode:      mode,
		UID:       fields[7],
		GID:       fields[8],
		Size:      fields[9],
		ID:        id,
		Flags:     binary.BigEndian.Uint16(block[60:]),
		Path:      string(name[:nul]),
	}, nil
}

// CleanPath 统一为 "/" 分隔的相对路径
func CleanPath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}
