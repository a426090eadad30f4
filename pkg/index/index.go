// pkg/index/index.go
package index

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gitvault/pkg/lockfile"
	"gitvault/pkg/types"
	"gitvault/pkg/workspace"
)

const (
	signature    = "DIRC"
	version      = 2
	headerSize   = 12
	checksumSize = sha1.Size
)

var ErrChecksumMismatch = errors.New("index checksum does not match contents")

// FormatError 描述索引文件结构上的错误 (期望值与实际值)
type FormatError struct {
	Field    string
	Expected string
	Found    string
	Err      error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("invalid index %s: expected %s, found %s", e.Field, e.Expected, e.Found)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Index 管理暂存区状态
//
// 生命周期: New -> LoadForUpdate -> Add/Remove -> WriteUpdates (或 Rollback)。
// 只读场景用 Load，不加锁。
type Index struct {
	path    string // 物理文件路径 (.gv/index)
	lock    *lockfile.Lockfile
	entries map[string]Entry
	changed bool
	mu      sync.RWMutex
}

func New(indexPath string) *Index {
	return &Index{
		path:    indexPath,
		lock:    lockfile.New(indexPath),
		entries: make(map[string]Entry),
	}
}

func (i *Index) Path() string { return i.path }

// Load 只读加载 (不加锁)。文件不存在视为空索引。
func (i *Index) Load() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.load()
}

// LoadForUpdate 获取锁并加载现有内容
func (i *Index) LoadForUpdate() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.lock.HoldForUpdate(); err != nil {
		return err
	}
	if err := i.load(); err != nil {
		i.lock.Release()
		return err
	}
	return nil
}

func (i *Index) load() error {
	i.entries = make(map[string]Entry)
	i.changed = false

	f, err := os.Open(i.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return err
	}
	for _, e := range entries {
		i.entries[e.Path] = e
	}
	return nil
}

// Add 更新一条记录。与新路径冲突的文件/目录条目会被移除
// (添加 "a/b" 会删掉文件 "a"，添加 "a" 会删掉 "a/..." 下的所有条目)。
func (i *Index) Add(path string, id types.ObjectID, st workspace.FileStat) error {
	if !id.IsValid() {
		return fmt.Errorf("index add %s: %w: %q", path, types.ErrInvalidObjectID, id)
	}
	e := NewEntry(path, id, st)

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, dir := range e.ParentDirs() {
		delete(i.entries, dir)
	}
	prefix := e.Path + "/"
	for p := range i.entries {
		if strings.HasPrefix(p, prefix) {
			delete(i.entries, p)
		}
	}

	i.entries[e.Path] = e
	i.changed = true
	return nil
}

// Remove 删除一条记录，返回它是否存在
func (i *Index) Remove(path string) bool {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.entries[key]; !ok {
		return false
	}
	delete(i.entries, key)
	i.changed = true
	return true
}

// Clear 清空所有记录 (checkout 重建索引时使用)
func (i *Index) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.entries) > 0 {
		i.changed = true
	}
	i.entries = make(map[string]Entry)
}

// WriteUpdates 有变化时通过锁文件整体重写，否则直接释放锁
func (i *Index) WriteUpdates() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.changed {
		return i.lock.Rollback()
	}

	data, err := encode(i.sortedEntries())
	if err != nil {
		i.lock.Release()
		return err
	}
	if _, err := i.lock.Write(data); err != nil {
		i.lock.Release()
		return err
	}
	if err := i.lock.Commit(); err != nil {
		return err
	}
	i.changed = false
	slog.Debug("index rewritten", "path", i.path, "entries", len(i.entries))
	return nil
}

// Rollback 放弃修改并释放锁
func (i *Index) Rollback() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lock.Rollback()
}

// Entries 按路径排序返回所有记录的副本
func (i *Index) Entries() []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sortedEntries()
}

func (i *Index) sortedEntries() []Entry {
	out := make([]Entry, 0, len(i.entries))
	for _, e := range i.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

func (i *Index) Entry(path string) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.entries[CleanPath(path)]
	return e, ok
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// IsEmpty 检查暂存区是否有内容
func (i *Index) IsEmpty() bool { return i.Len() == 0 }

// Changed 报告自加载以来是否有未写入的修改
func (i *Index) Changed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.changed
}

// -----------------------------------------------------------------------------
// 二进制格式
// -----------------------------------------------------------------------------

func encode(entries []Entry) ([]byte, error) {
	buf := make([]byte, 0, headerSize+len(entries)*entryMinSize+checksumSize)
	buf = append(buf, signature...)
	buf = binary.BigEndian.AppendUint32(buf, version)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))

	var err error
	for _, e := range entries {
		if buf, err = e.appendTo(buf); err != nil {
			return nil, err
		}
	}
	sum := sha1.Sum(buf)
	return append(buf, sum[:]...), nil
}

// checksumReader 边读边计算 SHA-1
type checksumReader struct {
	r    *bufio.Reader
	hash hash.Hash
}

func (c *checksumReader) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	c.hash.Write(buf)
	return buf, nil
}

// Read 解析一个完整的索引文件并校验末尾的校验和
func Read(r io.Reader) ([]Entry, error) {
	cr := &checksumReader{r: bufio.NewReader(r), hash: sha1.New()}

	// 1. 头部
	header, err := cr.read(headerSize)
	if err != nil {
		return nil, truncated("header", err)
	}
	if sig := string(header[:4]); sig != signature {
		return nil, &FormatError{Field: "signature", Expected: strconv.Quote(signature), Found: strconv.Quote(sig)}
	}
	if v := binary.BigEndian.Uint32(header[4:8]); v != version {
		return nil, &FormatError{Field: "version", Expected: strconv.Itoa(version), Found: strconv.FormatUint(uint64(v), 10)}
	}
	count := binary.BigEndian.Uint32(header[8:12])

	// 2. 条目：先读 64 字节，最后一个字节不是 NUL 就每次再读 8 字节。
	// 校验和通过之前只切分，不解析字段。
	blocks := make([][]byte, 0, min(count, 1024))
	for n := uint32(0); n < count; n++ {
		block, err := cr.read(entryMinSize)
		if err != nil {
			return nil, truncated("entry", err)
		}
		for block[len(block)-1] != 0 {
			more, err := cr.read(entryBlock)
			if err != nil {
				return nil, truncated("entry", err)
			}
			block = append(block, more...)
		}
		blocks = append(blocks, block)
	}

	// 3. 校验和 (不计入哈希)
	want := make([]byte, checksumSize)
	if _, err := io.ReadFull(cr.r, want); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, truncated("checksum", err)
	}
	if got := cr.hash.Sum(nil); !bytes.Equal(got, want) {
		return nil, fmt.Errorf("%w: expected %x, found %x", ErrChecksumMismatch, want, got)
	}
	if _, err := cr.r.ReadByte(); err != io.EOF {
		return nil, &FormatError{Field: "trailer", Expected: "end of file", Found: "extra data"}
	}

	entries := make([]Entry, 0, len(blocks))
	for _, block := range blocks {
		e, err := parseEntry(block)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func truncated(field string, err error) error {
	return &FormatError{Field: field, Expected: "more data", Found: "end of file", Err: err}
}
