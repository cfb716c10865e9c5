package main

import (
	"context"
	"fmt"

	"assetproxy/internal/config"
	"assetproxy/internal/provider"
	"assetproxy/internal/provider/cloudinary"
	"assetproxy/internal/provider/local"
	"assetproxy/internal/provider/s3"
)

// newProvider 按 PROVIDER_DRIVER 创建媒体后端。
func newProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.ProviderDriver {
	case config.DriverCloudinary:
		return cloudinary.New(cloudinary.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			URL:       cfg.CloudinaryURL,
		})
	case config.DriverS3:
		return s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
			PublicURL: cfg.S3PublicURL,
		})
	case config.DriverLocal:
		return local.New(cfg.LocalAssetDir, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider driver %q", cfg.ProviderDriver)
	}
}
