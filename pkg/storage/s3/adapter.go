package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// 对象的用户元数据 (x-amz-meta-*)，Info 只需要 HEAD 请求
const (
	metaType = "object-type"
	metaSize = "object-size"
)

// Adapter 是远端的对象库。对象与磁盘上的 loose object 字节相同 (zlib 压缩的规范字节)，
// key 为 "<prefix>/aa/bbcc..."。
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

type Config struct {
	Endpoint        string // MinIO 等兼容实现的地址，为空时使用 AWS
	Region          string
	Bucket          string
	Prefix          string // 可选，同一个 bucket 存放多个仓库时使用
	AccessKeyID     string
	SecretAccessKey string
}

func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 只支持 path style: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	a := &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
	a.ensureBucket(ctx)
	return a, nil
}

// ensureBucket 尽力创建 bucket，失败只记日志，真正的问题由后续请求暴露
func (s *Adapter) ensureBucket(ctx context.Context) {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		slog.Warn("failed to ensure bucket exists", "bucket", s.bucket, "error", err)
	}
}

// objectKey "aabbcc..." -> "<prefix>/aa/bbcc..."
func (s *Adapter) objectKey(id types.ObjectID) string {
	str := string(id)
	if len(str) > 2 {
		str = str[:2] + "/" + str[2:]
	}
	if s.prefix == "" {
		return str
	}
	return path.Join(s.prefix, str)
}

// idFromKey 是 objectKey 的逆操作
func (s *Adapter) idFromKey(key string) types.ObjectID {
	if s.prefix != "" {
		key = strings.TrimPrefix(key, s.prefix+"/")
	}
	return types.ObjectID(strings.Replace(key, "/", "", 1))
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	// 某些兼容实现只返回通用的 404
	return strings.Contains(err.Error(), "StatusCode: 404")
}

// Put 上传对象。HEAD 比 PUT 便宜，已存在的对象直接跳过。
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	typ, size, err := core.ReadHeader(obj.Bytes())
	if err != nil {
		return err
	}
	data, err := storage.Compress(obj.Bytes())
	if err != nil {
		return fmt.Errorf("s3 put compress failed: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(obj.ID())),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zlib"),
		Metadata: map[string]string{
			metaType: string(typ),
			metaSize: strconv.Itoa(size),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	slog.Debug("object uploaded", "id", obj.ID(), "bucket", s.bucket, "bytes", len(data))
	return nil
}

// Get 返回解压后的规范字节
func (s *Adapter) Get(ctx context.Context, id types.ObjectID) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return storage.NewDecompressor(resp.Body)
}

func (s *Adapter) Has(ctx context.Context, id types.ObjectID) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Info 从对象的元数据读取类型和大小。缺少元数据时 (其他工具上传的对象) 退回下载头部。
func (s *Adapter) Info(ctx context.Context, id types.ObjectID) (storage.ObjectInfo, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return storage.ObjectInfo{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return storage.ObjectInfo{}, fmt.Errorf("s3 head failed: %w", err)
	}
	if info, ok := infoFromMetadata(resp.Metadata); ok {
		return info, nil
	}
	return storage.ReadInfo(ctx, s, id)
}

func infoFromMetadata(md map[string]string) (storage.ObjectInfo, bool) {
	typ, size := md[metaType], md[metaSize]
	n, err := strconv.Atoi(size)
	if typ == "" || err != nil {
		return storage.ObjectInfo{}, false
	}
	return storage.ObjectInfo{Type: core.ObjectType(typ), Size: n}, true
}

// ExpandHash 用 ListObjectsV2 的前缀查询扩展短哈希
func (s *Adapter) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.ObjectID, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	p := string(prefix)

	// 只需要区分 0 个、1 个和多个
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.objectKey(types.ObjectID(p))),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return "", fmt.Errorf("s3 list failed: %w", err)
	}

	switch n := aws.ToInt32(resp.KeyCount); {
	case n == 0:
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	case n > 1:
		return "", fmt.Errorf("%w: %s", storage.ErrAmbiguousHash, p)
	}
	return s.idFromKey(aws.ToString(resp.Contents[0].Key)), nil
}
