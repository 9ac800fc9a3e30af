package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/3leaps/goferry/pkg/provider"
)

// objectAPI is the subset of *s3.Client the provider calls directly.
type objectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type fileUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type fileDownloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Provider implements the provider interfaces for AWS S3 and S3-compatible
// storage.
type Provider struct {
	api        objectAPI
	uploader   fileUploader
	downloader fileDownloader
	limiter    *rate.Limiter
	bucket     string
	maxKeys    int
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider   = (*Provider)(nil)
	_ provider.Lister     = (*Provider)(nil)
	_ provider.FileGetter = (*Provider)(nil)
	_ provider.FilePutter = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// The provider uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.PartConcurrency > 0 {
			u.Concurrency = cfg.PartConcurrency
		}
	})
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		if cfg.PartSize > 0 {
			d.PartSize = cfg.PartSize
		}
		if cfg.PartConcurrency > 0 {
			d.Concurrency = cfg.PartConcurrency
		}
	})

	return newProvider(cfg, client, uploader, downloader), nil
}

func newProvider(cfg Config, api objectAPI, up fileUploader, down fileDownloader) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	p := &Provider{
		api:        api,
		uploader:   up,
		downloader: down,
		bucket:     cfg.Bucket,
		maxKeys:    clampMaxKeys(maxKeys, DefaultMaxKeys),
	}
	if cfg.ListRateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.ListRateLimit), 1)
	}
	return p
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Let SDK resolve region from env/profile unless set explicitly.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// Bucket returns the bucket this provider is bound to.
func (p *Provider) Bucket() string { return p.bucket }

// List returns a page of objects with the given prefix.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(clampMaxKeys(opts.MaxKeys, p.maxKeys))),
	}
	if prefix := normalizeKey(opts.Prefix); prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}
	if opts.StartAfter != "" {
		input.StartAfter = aws.String(opts.StartAfter)
	}

	output, err := p.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, p.wrapError("List", opts.Prefix, err)
	}

	objects := make([]provider.ObjectSummary, 0, len(output.Contents))
	for _, obj := range output.Contents {
		objects = append(objects, provider.ObjectSummary{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	result := &provider.ListResult{
		Objects:     objects,
		IsTruncated: aws.ToBool(output.IsTruncated),
	}
	if output.NextContinuationToken != nil {
		result.ContinuationToken = *output.NextContinuationToken
	}

	return result, nil
}

// ListRecursive returns every object at root or below it.
//
// Keys ending in "/" are folder placeholders written by consoles and other
// tools; they are reported as directories.
func (p *Provider) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	root = normalizeKey(root)

	objs, err := provider.ListAll(ctx, p, root, p.maxKeys)
	if err != nil {
		return nil, err
	}

	entries := make([]provider.Entry, 0, len(objs))
	for _, obj := range objs {
		if !provider.UnderRoot(obj.Key, root) {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			entries = append(entries, provider.Entry{Path: strings.TrimSuffix(obj.Key, "/"), Kind: provider.KindDir})
			continue
		}
		entries = append(entries, provider.Entry{Path: obj.Key, Kind: provider.KindFile, Size: obj.Size})
	}
	return entries, nil
}

// PutFile uploads a local file, switching to multipart for large files.
func (p *Provider) PutFile(ctx context.Context, localPath, key string) error {
	key = normalizeKey(key)

	f, err := os.Open(localPath)
	if err != nil {
		return p.localError("PutFile", key, err)
	}
	defer func() { _ = f.Close() }()

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return p.wrapError("PutFile", key, err)
	}
	return nil
}

// GetFile downloads an object into localPath, creating parent directories.
// A failed download leaves no partial file behind.
func (p *Provider) GetFile(ctx context.Context, key, localPath string) error {
	key = normalizeKey(key)

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return p.localError("GetFile", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".goferry-get-*")
	if err != nil {
		return p.localError("GetFile", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := p.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return p.wrapError("GetFile", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.localError("GetFile", key, err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return p.localError("GetFile", key, err)
	}
	return nil
}

// Close releases any resources held by the provider.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, key string, err error) error {
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      classify(err),
	}
}

// localError wraps a local disk failure without sentinel mapping.
func (p *Provider) localError(op, key string, err error) error {
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}
}

// classify maps an SDK error to a provider sentinel, or returns it unchanged
// when no sentinel applies.
func classify(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		return provider.ErrNotFound
	case errors.As(err, &noSuchBucket):
		return provider.ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return provider.ErrNotFound
		case "NoSuchBucket":
			return provider.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			return provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			return provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			return provider.ErrProviderUnavailable
		}
		return err
	}

	// Fallback: check error message for common cases
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound") || strings.Contains(msg, "404"):
		return provider.ErrNotFound
	case strings.Contains(msg, "NoSuchBucket"):
		return provider.ErrBucketNotFound
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "Forbidden") || strings.Contains(msg, "403"):
		return provider.ErrAccessDenied
	case strings.Contains(msg, "InvalidAccessKeyId") || strings.Contains(msg, "SignatureDoesNotMatch"):
		return provider.ErrInvalidCredentials
	case strings.Contains(msg, "SlowDown") || strings.Contains(msg, "Throttling") || strings.Contains(msg, "429"):
		return provider.ErrThrottled
	case strings.Contains(msg, "ServiceUnavailable") || strings.Contains(msg, "503"):
		return provider.ErrProviderUnavailable
	}
	return err
}

// normalizeKey strips the leading slash filesystem-style paths carry.
// S3 keys are never rooted.
func normalizeKey(key string) string {
	return strings.TrimLeft(key, "/")
}

// cleanETag removes surrounding quotes from an ETag value.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// clampMaxKeys applies defaults and limits to maxKeys values.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion applies the us-east-1 fallback for AWS S3 when the SDK
// could not resolve a region. S3-compatible endpoints get no default.
func resolveRegion(endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}
