// Package storage persists uploaded media either on local disk or in an
// S3-compatible bucket, returning the URL a display can fetch it from.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

type Backend interface {
	Save(fileHeader *multipart.FileHeader) (url string, err error)
}

type localBackend struct {
	dir     string
	baseURL string
}

type bucketBackend struct {
	client *s3.S3
	bucket string
	cdnURL string
}

// NewLocal stores uploads under dir and serves them under baseURL
// (the router must expose dir statically at that path).
func NewLocal(dir, baseURL string) Backend {
	return &localBackend{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// NewBucket targets an S3-compatible object store (DigitalOcean Spaces,
// MinIO, AWS). Objects are written public-read and addressed via cdnURL.
func NewBucket(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (Backend, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("object store session: %w", err)
	}
	return &bucketBackend{
		client: s3.New(sess),
		bucket: bucket,
		cdnURL: strings.TrimSuffix(cdnURL, "/"),
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// objectName flattens the client-supplied filename into a unique,
// URL-safe key. The timestamp keeps repeated uploads of the same file
// from clobbering each other.
func objectName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(original, filepath.Ext(original))
	base = unsafeChars.ReplaceAllString(strings.ReplaceAll(base, " ", "_"), "")
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s%s", base, time.Now().UTC().Format("20060102_150405"), ext)
}

func (b *localBackend) Save(fileHeader *multipart.FileHeader) (string, error) {
	name := objectName(fileHeader.Filename)
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(b.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return b.baseURL + "/" + name, nil
}

func (b *bucketBackend) Save(fileHeader *multipart.FileHeader) (string, error) {
	name := objectName(fileHeader.Filename)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := "uploads/" + name
	_, err = b.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(MediaType(name)),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("object store upload failed")
		return "", fmt.Errorf("upload to bucket: %w", err)
	}
	return b.cdnURL + "/" + key, nil
}

// MediaType maps a filename to its MIME type for the handful of formats
// displays can render.
func MediaType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

// Kind classifies a filename as "image" or "video" for the content table.
func Kind(filename string) string {
	if strings.HasPrefix(MediaType(filename), "video/") {
		return "video"
	}
	return "image"
}
