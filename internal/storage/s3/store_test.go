package s3

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/shoptalk/shoptalk/internal/storage"
)

func TestPutUsesPrefixAndResolvedKey(t *testing.T) {
	fake := newFakeAPI()
	store, err := NewWithClient("bucket-a", "shoptalk/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	_, err = store.Put(context.Background(), "/answers/date=2026-02-19/trace-1.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastBucket)
	}
	want := "shoptalk/prod/answers/date=2026-02-19/trace-1.parquet"
	if _, ok := fake.objects[want]; !ok {
		t.Fatalf("object keys = %v, want %q", keysOf(fake.objects), want)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", newFakeAPI())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	for _, key := range []string{"../secrets.txt", "..", "/../secrets.txt"} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected validation error", key)
		}
	}
}

func TestGetReadsBackStoredObject(t *testing.T) {
	fake := newFakeAPI()
	store, err := NewWithClient("bucket-a", "archive", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	payload := []byte("parquet bytes")
	if _, err := store.Put(context.Background(), "a/b.parquet", bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	body, err := store.Get(context.Background(), "a/b.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = body.Close() }()
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Get() body = %q, want %q", got, payload)
	}
}

func TestGetMapsMissingObject(t *testing.T) {
	store, err := NewWithClient("bucket-a", "", newFakeAPI())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "missing.parquet"); err != storage.ErrObjectNotFound {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestStatReportsObjectInfo(t *testing.T) {
	fake := newFakeAPI()
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	if _, err := store.Stat(context.Background(), "missing.parquet"); err != storage.ErrObjectNotFound {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}

	if _, err := store.Put(context.Background(), "found.parquet", bytes.NewBufferString("abcd"), 4, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	info, err := store.Stat(context.Background(), "found.parquet")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Key != "found.parquet" || info.Size != 4 {
		t.Fatalf("Stat() info = %+v", info)
	}
}

func TestEnsureBucketDelegates(t *testing.T) {
	fake := newFakeAPI()
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.ensuredBucket {
		t.Fatal("expected EnsureBucket to be called")
	}
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://minio.example.com", false, "minio.example.com", true},
		{"http://minio.internal:9000", false, "minio.internal:9000", false},
		{"minio.internal:9000", false, "minio.internal:9000", false},
		{"minio.internal:9000", true, "minio.internal:9000", true},
	}
	for _, tc := range tests {
		host, secure, err := endpointHost(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("endpointHost(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("endpointHost(%q) = %q/%v, want %q/%v", tc.raw, host, secure, tc.wantHost, tc.wantSecure)
		}
	}

	if _, _, err := endpointHost("", false); err == nil {
		t.Fatal("endpointHost(\"\") expected error")
	}
}

type fakeAPI struct {
	objects       map[string][]byte
	lastBucket    string
	ensuredBucket bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string][]byte{}}
}

func (f *fakeAPI) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.lastBucket = bucket
	f.objects[key] = payload
	return storage.ObjectInfo{Key: key, Size: int64(len(payload))}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	payload, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (f *fakeAPI) StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	payload, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(payload))}, nil
}

func (f *fakeAPI) EnsureBucket(ctx context.Context, bucket, region string) error {
	f.ensuredBucket = true
	return nil
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}
