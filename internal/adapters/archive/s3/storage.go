// Package s3 archives fiscalization artifacts in an S3-compatible object
// store. Archival is a supplementary audit trail: the ZKI and JIR in the
// database are what compliance requires, so storage failures are logged
// and never propagated into the fiscalization outcome.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fiskal/internal/core/archive"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxKeyLength = 1024

// Storage implements archive.Archiver on a single bucket.
type Storage struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// Config for the object-store connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func New(cfg Config, log *slog.Logger) (*Storage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object-store client: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Save stores each artifact under folder. Partial failures are reported
// after attempting every artifact, so one bad object does not lose the
// rest of the exchange.
func (s *Storage) Save(ctx context.Context, folder string, artifacts ...archive.Artifact) error {
	var failed []string
	for _, art := range artifacts {
		key, err := objectKey(folder, art.Name)
		if err != nil {
			s.log.Error("Invalid archive key", "folder", folder, "name", art.Name, "error", err)
			failed = append(failed, art.Name)
			continue
		}

		_, err = s.client.PutObject(ctx, s.bucket, key,
			bytes.NewReader(art.Data), int64(len(art.Data)),
			minio.PutObjectOptions{ContentType: art.ContentType},
		)
		if err != nil {
			s.log.Error("Failed to archive artifact", "key", key, "error", err)
			failed = append(failed, art.Name)
			continue
		}
		s.log.Debug("Archived artifact", "key", key, "bytes", len(art.Data))
	}

	if len(failed) > 0 {
		return fmt.Errorf("archiving failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// objectKey joins folder and name and rejects traversal or control
// characters before the key reaches the store.
func objectKey(folder, name string) (string, error) {
	key := strings.TrimSpace(folder) + "/" + strings.TrimSpace(name)
	if key == "/" {
		return "", fmt.Errorf("empty archive key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("archive key %q contains path traversal", key)
	}
	for _, c := range []string{"\\", "\x00", "\r", "\n"} {
		if strings.Contains(key, c) {
			return "", fmt.Errorf("archive key %q contains invalid characters", key)
		}
	}
	if len(key) > maxKeyLength {
		return "", fmt.Errorf("archive key exceeds %d bytes", maxKeyLength)
	}
	return key, nil
}
