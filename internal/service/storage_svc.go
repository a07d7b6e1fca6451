package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shopify_vendor_hub/internal/api/dto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxAttachmentSize 附件大小上限
const MaxAttachmentSize = 10 << 20

// attachmentURLTTL 私有桶签名链接有效期
const attachmentURLTTL = 7 * 24 * time.Hour

// ==================== 接口定义 ====================

// ObjectStore 对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

// ==================== 配置 ====================

// StorageConfig S3 兼容存储配置
type StorageConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // 自定义端点 (MinIO / R2 等)
	PublicURL string // 公开访问前缀，为空时使用签名链接
	BasePath  string
}

// ==================== S3 实现 ====================

// S3Store 基于 aws-sdk-go-v2 的对象存储
type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// NewS3Store 创建 S3 存储
func NewS3Store(ctx context.Context, cfg *StorageConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("上传S3失败: %w", err)
	}
	return nil
}

func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(attachmentURLTTL))
	if err != nil {
		return "", fmt.Errorf("生成签名链接失败: %w", err)
	}
	return req.URL, nil
}

// ==================== AttachmentService ====================

// AttachmentService 消息附件上传，返回的 URL 作为 file 消息内容
type AttachmentService struct {
	store    ObjectStore
	basePath string
	now      func() time.Time
}

// NewAttachmentService 创建附件服务，store 为 nil 时上传返回错误
func NewAttachmentService(store ObjectStore, basePath string) *AttachmentService {
	return &AttachmentService{store: store, basePath: strings.Trim(basePath, "/"), now: time.Now}
}

// Upload 读取并上传附件
func (s *AttachmentService) Upload(ctx context.Context, userID int64, filename string, r io.Reader) (*dto.AttachmentResp, error) {
	if s.store == nil {
		return nil, fmt.Errorf("未配置附件存储")
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取附件失败: %w", err)
	}
	if len(data) == 0 {
		return nil, invalidArg("附件为空")
	}
	if len(data) > MaxAttachmentSize {
		return nil, invalidArg("附件超过 %d MB", MaxAttachmentSize>>20)
	}

	key := s.generateKey(userID, filename)
	if err := s.store.Put(ctx, key, data, http.DetectContentType(data)); err != nil {
		return nil, err
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &dto.AttachmentResp{
		Key:  key,
		URL:  url,
		Name: filepath.Base(filename),
		Size: int64(len(data)),
	}, nil
}

func (s *AttachmentService) generateKey(userID int64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	key := path.Join(fmt.Sprintf("attachments/%d", userID), s.now().Format("2006/01/02"), name)
	if s.basePath != "" {
		key = s.basePath + "/" + key
	}
	return key
}
