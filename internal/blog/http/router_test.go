package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill/internal/blog/blob"
	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/internal/blog/store/drivers/sqlite"
	"github.com/quillworks/quill/pkg/cryptox"
	"github.com/quillworks/quill/pkg/jwtx"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type testServer struct {
	srv   *httptest.Server
	blobs *blob.MemoryStore
	codec *jwtx.Codec
}

func newTestServer(t *testing.T, reissue bool) *testServer {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore("file::memory:?cache=shared")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec(testKey, "quill-test", time.Hour)
	require.NoError(t, err)

	blobs := blob.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(codec, codec, reissue, time.Hour, "test", st, logger)
	router.UserService = &service.UserService{Store: st, Codec: codec}
	router.PostService = &service.PostService{Store: st}
	router.TagService = &service.TagService{Store: st}
	router.FileService = &service.FileService{Store: st, Blobs: blobs, ScopedKeys: true}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, blobs: blobs, codec: codec}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, ts.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) signup(t *testing.T, username, password string) {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	resp := ts.request(t, http.MethodPost, "/signup", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.srv.URL+"/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth(username, password)

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	require.NotEmpty(t, tok.AccessToken)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Authorization"), "Bearer "))
	return tok.AccessToken
}

func decodePost(t *testing.T, r io.Reader) PostResponse {
	t.Helper()

	var p PostResponse
	require.NoError(t, json.NewDecoder(r).Decode(&p))
	return p
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t, false)

	ts.signup(t, "alice", "correct horse battery")

	// Duplicate username conflicts.
	body := `{"username":"alice","password":"other"}`
	resp := ts.request(t, http.MethodPost, "/signup", "", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	token := ts.login(t, "alice", "correct horse battery")

	// The minted token names the user as subject.
	subject, err := ts.codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "right password")

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.srv.URL+"/login", nil)
	require.NoError(t, err)
	req.SetBasicAuth("alice", "wrong password")

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, false)

	resp := ts.request(t, http.MethodGet, "/api/tag", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp = ts.request(t, http.MethodGet, "/api/tag", "not-a-jwt", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "pass-alice-123")
	ts.signup(t, "bob", "pass-bob-1234")
	alice := ts.login(t, "alice", "pass-alice-123")
	bob := ts.login(t, "bob", "pass-bob-1234")

	resp := ts.request(t, http.MethodPost, "/api/blog", alice,
		strings.NewReader(`{"title":"Hello","content":"first"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodePost(t, resp.Body)
	assert.Equal(t, "alice", created.Author)

	// Any authenticated user may read it.
	resp = ts.request(t, http.MethodGet, "/api/blog/"+created.ID, bob, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Only the owner may change it; others see 404, not 403.
	resp = ts.request(t, http.MethodPut, "/api/blog/"+created.ID, bob,
		strings.NewReader(`{"title":"Hijack","content":"x"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.request(t, http.MethodPut, "/api/blog/"+created.ID, alice,
		strings.NewReader(`{"title":"Hello v2","content":"edited"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello v2", decodePost(t, resp.Body).Title)

	resp = ts.request(t, http.MethodDelete, "/api/blog/"+created.ID, bob, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.request(t, http.MethodDelete, "/api/blog/"+created.ID, alice, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/api/blog/"+created.ID, alice, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListByAuthorWithSummaries(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "pass-alice-123")
	alice := ts.login(t, "alice", "pass-alice-123")

	long := strings.Repeat("y", 300)
	resp := ts.request(t, http.MethodPost, "/api/blog", alice,
		strings.NewReader(`{"title":"long","content":"`+long+`"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/api/blog/user/alice?summary=true", alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []PostResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Len(t, posts[0].Content, service.SummaryLength)

	resp = ts.request(t, http.MethodGet, "/api/blog/user/alice", alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	assert.Len(t, posts[0].Content, 300)
}

func TestTagEndpoints(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "pass-alice-123")
	alice := ts.login(t, "alice", "pass-alice-123")

	resp := ts.request(t, http.MethodPost, "/api/tag", alice,
		strings.NewReader(`{"name":"golang"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tag TagResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tag))

	resp = ts.request(t, http.MethodPost, "/api/blog", alice,
		strings.NewReader(`{"title":"tagged","content":"b"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodePost(t, resp.Body)

	resp = ts.request(t, http.MethodPost, "/api/blog/"+post.ID+"/tag/"+tag.ID, alice, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/api/blog/tag/"+tag.ID, alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []PostResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	resp = ts.request(t, http.MethodDelete, "/api/blog/"+post.ID+"/tag/"+tag.ID, alice, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Tag survives in the catalogue.
	resp = ts.request(t, http.MethodGet, "/api/tag", alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tags []TagResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tags))
	assert.Len(t, tags, 1)
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func multipartImage(t *testing.T, filename string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestFileUploadDownloadDelete(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "pass-alice-123")
	ts.signup(t, "bob", "pass-bob-1234")
	alice := ts.login(t, "alice", "pass-alice-123")
	bob := ts.login(t, "bob", "pass-bob-1234")

	resp := ts.request(t, http.MethodPost, "/api/blog", alice,
		strings.NewReader(`{"title":"gallery","content":"pics"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodePost(t, resp.Body)

	body, contentType := multipartImage(t, "cat.jpg", makeJPEG(t, 100, 100),
		map[string]string{"scale": "0.5", "quality": "0.5"})
	resp = ts.request(t, http.MethodPost, "/api/blog/"+post.ID+"/file", alice, body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/api/blog/"+post.ID+"/file/cat.jpg", alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	stored, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	// Bob cannot see, upload to, or delete from Alice's post.
	resp = ts.request(t, http.MethodGet, "/api/blog/"+post.ID+"/file/cat.jpg", bob, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.request(t, http.MethodDelete, "/api/blog/"+post.ID+"/file/cat.jpg", bob, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.request(t, http.MethodDelete, "/api/blog/"+post.ID+"/file/cat.jpg", alice, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, ts.blobs.Len())
}

func TestFileUploadRejectsBadScale(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "alice", "pass-alice-123")
	alice := ts.login(t, "alice", "pass-alice-123")

	resp := ts.request(t, http.MethodPost, "/api/blog", alice,
		strings.NewReader(`{"title":"p","content":"b"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodePost(t, resp.Body)

	body, contentType := multipartImage(t, "cat.jpg", makeJPEG(t, 10, 10), map[string]string{"scale": "-2"})
	resp = ts.request(t, http.MethodPost, "/api/blog/"+post.ID+"/file", alice, body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, contentType = multipartImage(t, "cat.jpg", makeJPEG(t, 10, 10), map[string]string{"scale": "abc"})
	resp = ts.request(t, http.MethodPost, "/api/blog/"+post.ID+"/file", alice, body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReissueAttachesFreshToken(t *testing.T) {
	ts := newTestServer(t, true)
	ts.signup(t, "alice", "pass-alice-123")
	alice := ts.login(t, "alice", "pass-alice-123")

	resp := ts.request(t, http.MethodGet, "/api/tag", alice, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fresh := strings.TrimPrefix(resp.Header.Get("Authorization"), "Bearer ")
	require.NotEmpty(t, fresh)

	subject, err := ts.codec.Validate(fresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	resp := ts.request(t, http.MethodGet, "/livez", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/readyz", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}
