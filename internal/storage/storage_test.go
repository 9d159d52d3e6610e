package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/elskow/assessgate/internal/auth"
	"github.com/elskow/assessgate/internal/config"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *fakeStore) Bucket() string { return "onlineclass" }

func (s *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if s.err != nil {
		return s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) PresignPut(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://storage.test/onlineclass/" + key + "?type=" + contentType, nil
}

func (s *fakeStore) EnsureBucket(context.Context) error { return s.err }

func newTestStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:         true,
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "onlineclass",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UsePathStyle:    true,
		PresignExpiry:   time.Hour,
		MaxUploadSize:   1 << 20,
	}
}

func withUser(r *http.Request, username string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, username))
}

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandler_Upload(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(newTestStorageConfig(), store, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Upload(rec, withUser(multipartRequest(t, "file", "answer.PNG", []byte("png-bytes")), "alice"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var body uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "onlineclass", body.Bucket)
	assert.True(t, strings.HasPrefix(body.ObjectKey, "uploads/alice/"))
	assert.True(t, strings.HasSuffix(body.ObjectKey, ".png"))
	assert.Equal(t, int64(len("png-bytes")), body.Size)
	assert.Equal(t, []byte("png-bytes"), store.objects[body.ObjectKey])
}

func TestHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		req      func(t *testing.T) *http.Request
		storeErr error
		maxSize  int64
		wantCode int
	}{
		{
			name:     "unauthenticated",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.txt", []byte("x")) },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing file field",
			user:     "alice",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "other", "a.txt", []byte("x")) },
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "too large",
			user:     "alice",
			maxSize:  16,
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.txt", bytes.Repeat([]byte("x"), 1024)) },
			wantCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "storage disabled",
			user:     "alice",
			storeErr: ErrStorageDisabled,
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.txt", []byte("x")) },
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "store failure",
			user:     "alice",
			storeErr: io.ErrUnexpectedEOF,
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "a.txt", []byte("x")) },
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestStorageConfig()
			if tt.maxSize > 0 {
				cfg.MaxUploadSize = tt.maxSize
			}
			store := newFakeStore()
			store.err = tt.storeErr
			h := NewHandler(cfg, store, zaptest.NewLogger(t))

			req := tt.req(t)
			if tt.user != "" {
				req = withUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.Upload(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandler_Presign(t *testing.T) {
	h := NewHandler(newTestStorageConfig(), newFakeStore(), zaptest.NewLogger(t))

	body, err := json.Marshal(presignRequest{FileName: "essay.pdf"})
	require.NoError(t, err)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/uploads/presign", bytes.NewReader(body)), "alice")

	rec := httptest.NewRecorder()
	h.Presign(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp presignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ObjectKey, "uploads/alice/"))
	assert.True(t, strings.HasSuffix(resp.ObjectKey, ".pdf"))
	assert.Contains(t, resp.URL, "type=application/pdf")
	assert.Equal(t, 3600, resp.ExpiresInSeconds)
}

func TestHandler_PresignValidation(t *testing.T) {
	h := NewHandler(newTestStorageConfig(), newFakeStore(), zaptest.NewLogger(t))

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/uploads/presign", strings.NewReader(`{}`)), "alice")
	rec := httptest.NewRecorder()
	h.Presign(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file_name is required")
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		fileName string
		wantExt  string
	}{
		{fileName: "photo.JPG", wantExt: ".jpg"},
		{fileName: "../../etc/passwd", wantExt: ""},
		{fileName: "noext", wantExt: ""},
		{fileName: "archive.tar.gz", wantExt: ".gz"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			key := objectKey("bob", tt.fileName)
			assert.True(t, strings.HasPrefix(key, "uploads/bob/"))
			rest := strings.TrimPrefix(key, "uploads/bob/")
			assert.NotContains(t, rest, "/")
			assert.Equal(t, 36+len(tt.wantExt), len(rest))
		})
	}
}

func TestS3Store_PresignPut(t *testing.T) {
	store, err := NewS3Store(context.Background(), newTestStorageConfig(), zap.NewNop())
	require.NoError(t, err)

	url, err := store.PresignPut(context.Background(), "uploads/alice/file.png", "image/png", 15*time.Minute)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/onlineclass/uploads/alice/file.png?"))
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

// s3Stub answers just enough of the S3 REST API for bucket bootstrap and puts.
type s3Stub struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string][]byte
	requests []string
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]

	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		if !s.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 1:
		s.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 2:
		data, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = data
		w.Header().Set("ETag", `"stub"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store_EnsureBucketAndPut(t *testing.T) {
	stub := &s3Stub{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	cfg := newTestStorageConfig()
	cfg.Endpoint = srv.URL
	store, err := NewS3Store(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx))
	assert.True(t, stub.buckets["onlineclass"])

	// second call sees the bucket and does not recreate it
	require.NoError(t, store.EnsureBucket(ctx))

	require.NoError(t, store.Put(ctx, "uploads/alice/a.txt", strings.NewReader("hello"), 5, "text/plain"))
	assert.Contains(t, stub.requests, "PUT /onlineclass/uploads/alice/a.txt")
}

func TestDisabledStore(t *testing.T) {
	var store ObjectStore = disabledStore{}
	assert.ErrorIs(t, store.EnsureBucket(context.Background()), ErrStorageDisabled)
	assert.ErrorIs(t, store.Put(context.Background(), "k", strings.NewReader(""), 0, ""), ErrStorageDisabled)
	_, err := store.PresignPut(context.Background(), "k", "", time.Minute)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}
