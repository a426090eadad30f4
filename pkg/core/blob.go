package core

import "gitvault/pkg/types"

// Blob 保存文件的原始内容，没有其他结构
type Blob struct {
	hash     types.ObjectID
	rawBytes []byte
	data     []byte
}

func NewBlob(data []byte) *Blob {
	b := &Blob{data: append([]byte(nil), data...)}
	b.hash, b.rawBytes = CalculateHash(b)
	return b
}

func (b *Blob) Type() ObjectType   { return TypeBlob }
func (b *Blob) ID() types.ObjectID { return b.hash }
func (b *Blob) Bytes() []byte      { return b.rawBytes }
func (b *Blob) Data() []byte       { return b.data }
func (b *Blob) Size() int64        { return int64(len(b.data)) }
func (b *Blob) sealed()            {}
