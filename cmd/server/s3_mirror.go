package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/persistence/r2s3"
)

// buildMirror returns nil unless CC_S3_MIRROR is true.
func buildMirror(dataDir string, logger logrus.FieldLogger) (*r2s3.Mirror, error) {
	if !envBool("CC_S3_MIRROR", false) {
		return nil, nil
	}

	cfg := r2s3.Config{
		Endpoint:        strings.TrimSpace(os.Getenv("CC_S3_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("CC_S3_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("CC_S3_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("CC_S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("CC_S3_SECRET_ACCESS_KEY")),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("CC_S3_MIRROR=true but CC_S3_ENDPOINT/CC_S3_BUCKET/CC_S3_ACCESS_KEY_ID/CC_S3_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := r2s3.New(cfg)
	if err != nil {
		return nil, err
	}
	return r2s3.NewMirror(client, r2s3.MirrorConfig{
		DataDir: dataDir,
		Prefix:  strings.TrimSpace(os.Getenv("CC_S3_PREFIX")),
		Workers: envInt("CC_S3_UPLOAD_WORKERS", 2),
		Logger:  logger,
	}), nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
