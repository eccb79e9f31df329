package openpose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ObjectFetcher opens objects of a remote model folder
type ObjectFetcher interface {
	// Open returns a reader of the object, the error wraps
	// storage.ErrObjectNotExist when there is no such object
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// gcsFetcher reads objects from Google Cloud Storage using application
// default credentials
type gcsFetcher struct{}

// gcsReader closes the client along with the object reader
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	return multierr.Combine(r.Reader.Close(), r.client.Close())
}

func (gcsFetcher) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {

	client, err := storage.NewClient(ctx)

	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)

	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening object gs://%s/%s: %w", bucket, object, err)
	}

	return &gcsReader{Reader: r, client: client}, nil
}

// splitGCS parses gs://bucket/prefix
func splitGCS(folder string) (bucket, prefix string, err error) {

	rest := strings.TrimPrefix(folder, "gs://")
	bucket, prefix, _ = strings.Cut(rest, "/")

	if bucket == "" {
		return "", "", fmt.Errorf("model folder %q has no bucket", folder)
	}

	return bucket, strings.Trim(prefix, "/"), nil
}

// modelStore resolves model files to local paths, downloading them into the
// cache when the model folder is remote
type modelStore struct {
	folder   string
	cacheDir string
	fetcher  ObjectFetcher
	log      *zap.Logger
}

// resolve returns the local path of every file, relative to the model folder
func (s *modelStore) resolve(ctx context.Context, files []string) ([]string, error) {

	paths := make([]string, len(files))

	for i, f := range files {

		var err error

		if isRemote(s.folder) {
			paths[i], err = s.download(ctx, f)
		} else {
			paths[i], err = s.local(f)
		}

		if err != nil {
			return nil, err
		}
	}

	return paths, nil
}

func (s *modelStore) local(file string) (string, error) {

	p := filepath.Join(s.folder, filepath.FromSlash(file))
	info, err := os.Stat(p)

	if err != nil {
		return "", &ConfigError{Key: "model_folder", Err: fmt.Errorf("model file: %w", err)}
	}

	if info.IsDir() {
		return "", configErr("model_folder", "model file %s is a directory", p)
	}

	return p, nil
}

func (s *modelStore) download(ctx context.Context, file string) (string, error) {

	bucket, prefix, err := splitGCS(s.folder)

	if err != nil {
		return "", &ConfigError{Key: "model_folder", Err: err}
	}

	object := path.Join(prefix, file)
	dest := filepath.Join(s.cacheDir, bucket, filepath.FromSlash(object))

	if _, err := os.Stat(dest); err == nil {
		s.log.Debug("Using cached model file", zap.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", &ConfigError{Key: "cache_dir", Err: err}
	}

	url := "gs://" + bucket + "/" + object
	s.log.Info("Downloading model file", zap.String("source", url), zap.String("destination", dest))

	startedAt := time.Now()
	r, err := s.fetcher.Open(ctx, bucket, object)

	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", &ConfigError{Key: "model_folder", Err: err}
		}

		return "", &InferenceError{Op: "download", Err: err}
	}

	defer r.Close()

	n, err := writeToFile(r, dest)

	if err != nil {
		return "", &InferenceError{Op: "download", Err: fmt.Errorf("downloading %s: %w", url, err)}
	}

	s.log.Info("Downloaded model file",
		zap.String("source", url),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(startedAt)),
	)

	return dest, nil
}

// writeToFile copies src to a temporary file beside dest and renames it
// into place once complete
func writeToFile(src io.Reader, dest string) (n int64, err error) {

	tmp, err := os.CreateTemp(filepath.Dir(dest), "download")

	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, src)

	if err != nil {
		return n, fmt.Errorf("downloading from upstream source: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("closing temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("renaming temp file: %w", err)
	}

	return n, nil
}
