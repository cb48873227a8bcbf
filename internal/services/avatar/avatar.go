// Package avatar stores user avatars in S3-compatible object storage.
//
// Every upload is normalized before it is stored: the image is decoded,
// resized to exactly 250x250 and re-encoded as PNG, regardless of the
// input dimensions or format.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrUploadFailed   = errors.New("avatar upload failed")
	ErrDownloadFailed = errors.New("avatar download failed")
	ErrDeleteFailed   = errors.New("avatar delete failed")
	ErrNotFound       = errors.New("avatar not found")
	ErrInvalidImage   = errors.New("invalid image")
)

// Dimension is the side length of a stored avatar in pixels.
const Dimension = 250

// Store saves and serves normalized avatar images.
type Store interface {
	Save(ctx context.Context, userID string, data []byte) error
	Get(ctx context.Context, userID string) ([]byte, error)
	Delete(ctx context.Context, userID string) error
}

type MinioStore struct {
	client     *minio.Client
	bucketName string
}

func NewMinioStore() (*MinioStore, error) {
	endpoint := getEnv("MINIO_ENDPOINT", "localhost:9000")
	accessKey := getEnv("MINIO_ACCESS_KEY", "minioadmin")
	secretKey := getEnv("MINIO_SECRET_KEY", "minioadmin")
	bucketName := getEnv("MINIO_BUCKET", "task-service")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object storage: %w", err)
	}

	return &MinioStore{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

func objectName(userID string) string {
	return "avatars/" + userID + ".png"
}

// Save normalizes the uploaded image and stores it under the user's id.
// A second upload for the same user overwrites the first.
func (s *MinioStore) Save(ctx context.Context, userID string, data []byte) error {
	normalized, err := Normalize(data)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucketName, objectName(userID),
		bytes.NewReader(normalized), int64(len(normalized)), minio.PutObjectOptions{
			ContentType: "image/png",
		})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

// Get returns the stored PNG bytes for the user, or ErrNotFound.
func (s *MinioStore) Get(ctx context.Context, userID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, objectName(userID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return data, nil
}

// Delete removes the user's avatar. Idempotent: deleting an absent avatar
// is not an error.
func (s *MinioStore) Delete(ctx context.Context, userID string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName(userID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// Normalize decodes an uploaded image and re-encodes it as a 250x250 PNG.
func Normalize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	resized := imaging.Resize(img, Dimension, Dimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return buf.Bytes(), nil
}
