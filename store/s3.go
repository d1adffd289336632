package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config carries the settings for the S3 driver.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3 is a Store backed by an S3 bucket. Hierarchical paths map to object
// keys with the leading slash stripped; directories are key prefixes.
type S3 struct {
	cl       *s3.Client
	uploader *manager.Uploader
	bucket   string
}

func NewS3(cfg S3Config) *S3 {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	cl := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: creds,
	})
	return &S3{
		cl:       cl,
		uploader: manager.NewUploader(cl),
		bucket:   cfg.Bucket,
	}
}

func s3Key(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func s3Err(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}

func (s *S3) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3) Stat(ctx context.Context, p string) (FileInfo, error) {
	out, err := s.cl.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(p)),
	})
	if err != nil {
		return FileInfo{}, s3Err(err)
	}
	fi := FileInfo{}
	if out.ContentLength != nil {
		fi.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		fi.ModTime = *out.LastModified
	}
	return fi, nil
}

func (s *S3) OpenRead(ctx context.Context, p string, br *ByteRange) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(p)),
	}
	if br != nil {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", br.Start, br.End))
	}
	out, err := s.cl.GetObject(ctx, in)
	if err != nil {
		return nil, s3Err(err)
	}
	return out.Body, nil
}

// s3Writer streams through a pipe into the uploader; Close waits for the
// upload to finish so callers observe write failures.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(b []byte) (int, error) { return w.pw.Write(b) }

func (w *s3Writer) Close() error {
	w.pw.Close()
	return <-w.done
}

func (s *S3) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s3Key(p)),
			Body:   pr,
		})
		pr.CloseWithError(err)
		done <- err
	}()
	return &s3Writer{pw: pw, done: done}, nil
}

func (s *S3) List(ctx context.Context, p string) ([]Entry, error) {
	prefix := s3Key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var entries []Entry
	paginator := s3.NewListObjectsV2Paginator(s.cl, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s3Err(err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			entries = append(entries, Entry{Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			e := Entry{Name: name}
			if obj.Size != nil {
				e.Size = *obj.Size
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// keysUnder returns every object key below prefix, prefix itself included
// when it names an object.
func (s *S3) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.cl, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s3Err(err)
		}
		for _, obj := range page.Contents {
			k := *obj.Key
			if k == prefix || strings.HasPrefix(k, prefix+"/") {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

func (s *S3) copyKey(ctx context.Context, from, to string) error {
	_, err := s.cl.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(to),
		CopySource: aws.String(s.bucket + "/" + from),
	})
	return s3Err(err)
}

// Move renames an object or, when from names a prefix, every object below it.
func (s *S3) Move(ctx context.Context, from, to string) error {
	src, dst := s3Key(from), s3Key(to)
	keys, err := s.keysUnder(ctx, src)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	for _, k := range keys {
		if err := s.copyKey(ctx, k, dst+strings.TrimPrefix(k, src)); err != nil {
			return err
		}
	}
	return s.Delete(ctx, from)
}

// Delete removes an object or, when p names a prefix, every object below it.
func (s *S3) Delete(ctx context.Context, p string) error {
	key := s3Key(p)
	keys, err := s.keysUnder(ctx, key)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		keys = []string{key}
	}
	for _, k := range keys {
		_, err := s.cl.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return s3Err(err)
		}
	}
	return nil
}
