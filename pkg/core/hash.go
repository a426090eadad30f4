package core

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"gitvault/pkg/types"
)

var ErrMalformedObject = errors.New("malformed object")

// Encode 返回对象的规范字节: "<type> <decimal-length>\0<payload>"
// Each variant has exactly one payload function; dispatch is a type switch
// over the closed union.
func Encode(obj Object) []byte {
	var payload []byte
	switch o := obj.(type) {
	case *Blob:
		payload = o.data
	case *Tree:
		payload = o.payload()
	case *Commit:
		payload = o.payload()
	default:
		panic(fmt.Sprintf("core: unknown object variant %T", obj))
	}
	return envelope(obj.Type(), payload)
}

// Payload 返回去掉头部后的内容部分
func Payload(obj Object) []byte {
	raw := obj.Bytes()
	nul := bytes.IndexByte(raw, 0)
	return raw[nul+1:]
}

func envelope(t ObjectType, payload []byte) []byte {
	header := string(t) + " " + strconv.Itoa(len(payload)) + "\x00"
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// HashBytes 计算任意字节的 SHA-1
func HashBytes(data []byte) types.ObjectID {
	sum := sha1.Sum(data)
	return types.ObjectID(hex.EncodeToString(sum[:]))
}

// Hash 返回对象的 ID
func Hash(obj Object) types.ObjectID {
	return HashBytes(Encode(obj))
}

// CalculateHash 计算对象的 ID 和规范序列化数据
func CalculateHash(obj Object) (types.ObjectID, []byte) {
	data := Encode(obj)
	return HashBytes(data), data
}

// Decode parses canonical bytes back into a typed object. The declared length
// must match the payload exactly.
func Decode(raw []byte) (Object, error) {
	typ, size, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	payload := raw[bytes.IndexByte(raw, 0)+1:]
	if len(payload) != size {
		return nil, fmt.Errorf("%w: length mismatch: expected %d, found %d", ErrMalformedObject, size, len(payload))
	}

	var obj Object
	switch typ {
	case TypeBlob:
		obj = NewBlob(payload)
	case TypeTree:
		obj, err = ParseTree(payload)
	case TypeCommit:
		obj, err = ParseCommit(payload)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedObject, typ)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// ReadHeader 只解析头部，返回类型和 payload 长度
func ReadHeader(raw []byte) (ObjectType, int, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", 0, fmt.Errorf("%w: missing NUL after header", ErrMalformedObject)
	}
	typ, sizeStr, ok := bytes.Cut(raw[:nul], []byte(" "))
	if !ok {
		return "", 0, fmt.Errorf("%w: invalid header %q", ErrMalformedObject, raw[:nul])
	}
	size, err := strconv.Atoi(string(sizeStr))
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid length %q", ErrMalformedObject, sizeStr)
	}
	return ObjectType(typ), size, nil
}
