package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gitvault/pkg/core"
)

// PrintStructure 打印一个已解码的对象
// Blob 原样输出，Tree 模拟 git ls-tree，Commit 输出 payload
func PrintStructure(obj core.Object, w io.Writer) error {
	switch o := obj.(type) {
	case *core.Blob:
		_, err := w.Write(o.Data())
		return err
	case *core.Tree:
		return printTree(o, w)
	case *core.Commit:
		return printCommit(o, w)
	default:
		return fmt.Errorf("unknown object type: %s", obj.Type())
	}
}

func printCommit(c *core.Commit, w io.Writer) error {
	_, err := w.Write(core.Payload(c))
	return err
}

func printTree(t *core.Tree, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, entry := range t.Entries() {
		typ := core.TypeBlob
		if entry.IsDir() {
			typ = core.TypeTree
		}
		fmt.Fprintf(tw, "%06o %s %s\t%s\n", uint32(entry.Mode), typ, entry.ObjectID(), entry.Name)
	}
	return tw.Flush()
}

// FormatSize 把字节数格式化为人类可读的形式
func FormatSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
