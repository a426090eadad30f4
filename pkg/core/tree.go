package core

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gitvault/pkg/types"
)

var (
	// ErrEntryConflict 表示同一个名字既被当作目录又被当作文件
	ErrEntryConflict = errors.New("tree entry is both a leaf and a directory")
	ErrDuplicateName = errors.New("duplicate tree entry name")
)

// TreeEntry is one child of a Tree: either a nested Tree (Mode == ModeDir)
// or a leaf reference (mode, id). Trees decoded from storage only carry ids,
// so a directory entry may have a nil Tree and a set ID.
type TreeEntry struct {
	Name string
	Mode FileMode
	ID   types.ObjectID
	Tree *Tree
}

func (e TreeEntry) IsDir() bool { return e.Mode.IsDir() }

// ObjectID returns the id embedded in the parent's serialization.
func (e TreeEntry) ObjectID() types.ObjectID {
	if e.Tree != nil {
		return e.Tree.ID()
	}
	return e.ID
}

// Tree 是目录树节点，按单个路径段 (不是完整路径) 索引子节点
// A tree caches its id on first use; the builder completes every insert
// before anything asks for an id.
type Tree struct {
	hash     types.ObjectID
	rawBytes []byte

	entries map[string]*TreeEntry
}

// NewTree 用给定的条目创建一个目录树节点
func NewTree(entries []TreeEntry) (*Tree, error) {
	t := &Tree{entries: make(map[string]*TreeEntry, len(entries))}
	for _, e := range entries {
		if _, dup := t.entries[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		e := e
		t.entries[e.Name] = &e
	}
	return t, nil
}

// validName 树条目名必须是单个路径段
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: invalid entry name %q", ErrMalformedObject, name)
	}
	return nil
}

func validateEntry(e TreeEntry) error {
	if err := validName(e.Name); err != nil {
		return err
	}
	if e.Tree != nil {
		if !e.Mode.IsDir() {
			return fmt.Errorf("%w: %q", ErrEntryConflict, e.Name)
		}
		return nil
	}
	if !e.ID.IsValid() {
		return fmt.Errorf("entry %q: %w: %q", e.Name, types.ErrInvalidObjectID, e.ID)
	}
	return nil
}

func (t *Tree) Type() ObjectType { return TypeTree }
func (t *Tree) sealed()          {}

func (t *Tree) ID() types.ObjectID {
	t.seal()
	return t.hash
}

func (t *Tree) Bytes() []byte {
	t.seal()
	return t.rawBytes
}

func (t *Tree) seal() {
	if t.rawBytes == nil {
		t.hash, t.rawBytes = CalculateHash(t)
	}
}

func (t *Tree) Len() int { return len(t.entries) }

// Entries 按名字排序返回所有条目 (副本)
func (t *Tree) Entries() []TreeEntry {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TreeEntry, 0, len(names))
	for _, name := range names {
		out = append(out, *t.entries[name])
	}
	return out
}

// Entry 按名字查找条目
func (t *Tree) Entry(name string) (TreeEntry, bool) {
	e, ok := t.entries[name]
	if !ok {
		return TreeEntry{}, false
	}
	return *e, true
}

// Subtree returns the nested tree called name, creating it if missing.
// It fails with ErrEntryConflict when name is already a leaf.
func (t *Tree) Subtree(name string) (*Tree, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if e, ok := t.entries[name]; ok {
		if !e.IsDir() || e.Tree == nil {
			return nil, fmt.Errorf("%w: %q", ErrEntryConflict, name)
		}
		return e.Tree, nil
	}
	sub := &Tree{entries: make(map[string]*TreeEntry)}
	t.entries[name] = &TreeEntry{Name: name, Mode: ModeDir, Tree: sub}
	t.invalidate()
	return sub, nil
}

// PutLeaf inserts (or replaces) a leaf. A directory of the same name is a conflict.
func (t *Tree) PutLeaf(name string, mode FileMode, id types.ObjectID) error {
	if mode.IsDir() {
		return fmt.Errorf("%w: %q has directory mode", ErrEntryConflict, name)
	}
	e := TreeEntry{Name: name, Mode: mode, ID: id}
	if err := validateEntry(e); err != nil {
		return err
	}
	if old, ok := t.entries[name]; ok && old.IsDir() {
		return fmt.Errorf("%w: %q", ErrEntryConflict, name)
	}
	t.entries[name] = &e
	t.invalidate()
	return nil
}

func (t *Tree) invalidate() {
	t.hash, t.rawBytes = "", nil
}

// payload: 对每个子节点 (按名字排序) 输出 "<mode> <name>\0" + 20 字节原始 id
func (t *Tree) payload() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries() {
		raw, err := e.ObjectID().Raw()
		if err != nil {
			// validateEntry 已保证 id 合法
			panic(fmt.Sprintf("core: tree entry %q: %v", e.Name, err))
		}
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(raw[:])
	}
	return buf.Bytes()
}

// ParseTree 解析 tree 的 payload 部分。子目录只携带 id。
func ParseTree(payload []byte) (*Tree, error) {
	t := &Tree{entries: make(map[string]*TreeEntry)}
	for len(payload) > 0 {
		sp := bytes.IndexByte(payload, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: tree entry missing mode", ErrMalformedObject)
		}
		mode, err := ParseFileMode(string(payload[:sp]))
		if err != nil {
			return nil, err
		}
		payload = payload[sp+1:]

		nul := bytes.IndexByte(payload, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry missing NUL", ErrMalformedObject)
		}
		name := string(payload[:nul])
		if err := validName(name); err != nil {
			return nil, err
		}
		payload = payload[nul+1:]

		if len(payload) < types.RawSize {
			return nil, fmt.Errorf("%w: tree entry %q truncated: expected %d id bytes, found %d",
				ErrMalformedObject, name, types.RawSize, len(payload))
		}
		id, err := types.ObjectIDFromRaw(payload[:types.RawSize])
		if err != nil {
			return nil, err
		}
		payload = payload[types.RawSize:]

		if _, dup := t.entries[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		t.entries[name] = &TreeEntry{Name: name, Mode: mode, ID: id}
	}
	return t, nil
}
