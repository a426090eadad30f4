package core

import (
	"bytes"
	"fmt"
	"strings"

	"gitvault/pkg/types"
)

// Commit 代表一个版本快照
type Commit struct {
	hash     types.ObjectID
	rawBytes []byte

	// Parent 为空表示仓库的第一个提交
	Parent    types.ObjectID
	TreeID    types.ObjectID
	Author    Author
	Committer Author
	Message   string
}

// NewCommit builds a commit whose committer is the author. The message is
// kept byte-for-byte.
func NewCommit(parent, tree types.ObjectID, author Author, msg string) (*Commit, error) {
	if !tree.IsValid() {
		return nil, fmt.Errorf("commit tree: %w: %q", types.ErrInvalidObjectID, tree)
	}
	if !parent.IsZero() && !parent.IsValid() {
		return nil, fmt.Errorf("commit parent: %w: %q", types.ErrInvalidObjectID, parent)
	}

	c := &Commit{
		Parent:    parent,
		TreeID:    tree,
		Author:    author,
		Committer: author,
		Message:   msg,
	}
	c.hash, c.rawBytes = CalculateHash(c)
	return c, nil
}

func (c *Commit) Type() ObjectType   { return TypeCommit }
func (c *Commit) ID() types.ObjectID { return c.hash }
func (c *Commit) Bytes() []byte      { return c.rawBytes }
func (c *Commit) sealed()            {}

// IsRoot reports whether the commit has no parent.
func (c *Commit) IsRoot() bool { return c.Parent.IsZero() }

// Summary 返回消息的第一行
func (c *Commit) Summary() string {
	line, _, _ := strings.Cut(c.Message, "\n")
	return line
}

func (c *Commit) payload() []byte {
	lines := []string{"tree " + c.TreeID.String()}
	if !c.Parent.IsZero() {
		lines = append(lines, "parent "+c.Parent.String())
	}
	lines = append(lines,
		"author "+c.Author.String(),
		"committer "+c.Committer.String(),
		"",
		c.Message,
	)
	return []byte(strings.Join(lines, "\n"))
}

// ParseCommit 解析 commit 的 payload 部分
func ParseCommit(payload []byte) (*Commit, error) {
	idx := bytes.Index(payload, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: commit missing header/message separator", ErrMalformedObject)
	}

	c := &Commit{Message: string(payload[idx+2:])}
	var hasAuthor, hasCommitter bool
	for _, line := range strings.Split(string(payload[:idx]), "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: malformed commit header line %q", ErrMalformedObject, line)
		}
		switch key {
		case "tree":
			c.TreeID = types.ObjectID(val)
		case "parent":
			if !c.Parent.IsZero() {
				return nil, fmt.Errorf("%w: commit has more than one parent", ErrMalformedObject)
			}
			c.Parent = types.ObjectID(val)
		case "author":
			a, err := ParseAuthor(val)
			if err != nil {
				return nil, err
			}
			c.Author, hasAuthor = a, true
		case "committer":
			a, err := ParseAuthor(val)
			if err != nil {
				return nil, err
			}
			c.Committer, hasCommitter = a, true
		default:
			return nil, fmt.Errorf("%w: unknown commit header %q", ErrMalformedObject, key)
		}
	}
	if !c.TreeID.IsValid() {
		return nil, fmt.Errorf("%w: commit tree id %q", ErrMalformedObject, c.TreeID)
	}
	if !hasAuthor {
		return nil, fmt.Errorf("%w: commit missing author", ErrMalformedObject)
	}
	if !hasCommitter {
		c.Committer = c.Author
	}

	c.hash, c.rawBytes = CalculateHash(c)
	return c, nil
}
