// Package upload ships finished export archives to S3-compatible storage
// using the AWS CLI (`aws s3 cp`).
package upload

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"
)

// S3Config holds uploader parameters for archive uploads.
type S3Config struct {
	BucketURL    string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool
}

// S3Uploader pushes export archives to a bucket, keyed by collection date
// so repeated runs against the same vCenter do not overwrite each other.
type S3Uploader struct {
	bucket    string
	keyPrefix string
	cfg       S3Config
}

// NewS3Uploader constructs an uploader from an S3 bucket URL and static
// credentials. BucketURL format: s3://bucket/prefix (prefix optional).
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	bucket, prefix, err := parseBucketURL(cfg.BucketURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("upload: access key and secret key are required")
	}
	if _, err := exec.LookPath("aws"); err != nil {
		return nil, fmt.Errorf("upload: aws cli not found in PATH")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Uploader{
		bucket:    bucket,
		keyPrefix: prefix,
		cfg:       cfg,
	}, nil
}

// UploadArchive uploads the archive at localPath under a date-stamped key
// and returns the destination URL.
func (u *S3Uploader) UploadArchive(ctx context.Context, localPath string, collectedAt time.Time) (string, error) {
	objectKey := archiveKey(u.keyPrefix, path.Base(localPath), collectedAt)
	dest := fmt.Sprintf("s3://%s/%s", u.bucket, objectKey)

	args := []string{"s3", "cp", localPath, dest, "--region", u.cfg.Region, "--only-show-errors"}
	if endpoint := normalizeEndpoint(u.cfg.Endpoint, u.cfg.UseSSL); endpoint != "" {
		args = append(args, "--endpoint-url", endpoint)
	}

	cmd := exec.CommandContext(ctx, "aws", args...)
	cmd.Env = append(os.Environ(),
		"AWS_ACCESS_KEY_ID="+u.cfg.AccessKey,
		"AWS_SECRET_ACCESS_KEY="+u.cfg.SecretKey,
		"AWS_DEFAULT_REGION="+u.cfg.Region,
	)
	if strings.TrimSpace(u.cfg.SessionToken) != "" {
		cmd.Env = append(cmd.Env, "AWS_SESSION_TOKEN="+u.cfg.SessionToken)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("upload: s3 cp failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	log.Printf("upload: archive uploaded to %s", dest)
	return dest, nil
}

// archiveKey prepends the configured prefix and the collection date:
// prefix/2026-08-31/vcexport.zip.
func archiveKey(prefix, fileName string, collectedAt time.Time) string {
	key := path.Join(collectedAt.UTC().Format("2006-01-02"), fileName)
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	return key
}

func normalizeEndpoint(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "https://"
	if !useSSL {
		scheme = "http://"
	}
	return scheme + endpoint
}

func parseBucketURL(raw string) (bucket string, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("upload: parse bucket-url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("upload: bucket-url must use s3:// scheme")
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", "", fmt.Errorf("upload: bucket-url missing bucket name")
	}

	prefix = strings.Trim(strings.TrimSpace(u.Path), "/")
	return u.Host, prefix, nil
}
