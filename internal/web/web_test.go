package web

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/artifact"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

const (
	testJWTSecret  = "test-secret"
	testAdminToken = "letmein"
)

type testEnv struct {
	server   *httptest.Server
	uploads  *artifact.Store
	database *sql.DB
}

func setupWebServer(t *testing.T, withAdmin bool, maxUpload int64) *testEnv {
	t.Helper()

	database := db.NewTestDB(t)
	uploads, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating upload store: %v", err)
	}

	var adminHash []byte
	if withAdmin {
		adminHash, _ = bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.DefaultCost)
	}

	router, err := NewRouter(Options{
		DB:             database,
		Uploads:        uploads,
		Pipeline:       imaging.New(uploads, imaging.DefaultPolicy()),
		JWTSecret:      testJWTSecret,
		AdminHash:      adminHash,
		MaxUploadBytes: maxUpload,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, uploads: uploads, database: database}
}

// noRedirect returns responses as-is so tests can inspect Location headers.
func noRedirect(t *testing.T) *http.Client {
	t.Helper()
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// adminClient logs in and returns a client carrying the session cookie.
func adminClient(t *testing.T, env *testEnv) *http.Client {
	t.Helper()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.PostForm(env.server.URL+"/admin/login", url.Values{"token": {testAdminToken}})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("admin login: expected 303, got %d", resp.StatusCode)
	}
	return client
}

func testJPEGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for x := 0; x < 120; x++ {
		for y := 0; y < 90; y++ {
			img.Set(x, y, color.RGBA{200, 80, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test JPEG: %v", err)
	}
	return buf.Bytes()
}

func postReport(t *testing.T, client *http.Client, serverURL string, fields map[string]string, imageData []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if imageData != nil {
		part, err := mw.CreateFormFile("image", "photo.jpg")
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		part.Write(imageData)
	}
	mw.Close()

	resp, err := client.Post(serverURL+"/report", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("report request: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func TestReportFlow(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := noRedirect(t)

	resp := postReport(t, client, env.server.URL, map[string]string{
		"name":     "Blue Backpack",
		"location": "Gym",
	}, testJPEGBytes(t))
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/?msg=reported" {
		t.Errorf("expected redirect to /?msg=reported, got %q", loc)
	}

	items, err := store.ListItems(context.Background(), env.database, store.ViewPublic)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("expected status 'available', got %q", item.Status)
	}
	if item.DateFound != model.Today() {
		t.Errorf("expected date_found to default to today, got %q", item.DateFound)
	}
	if item.ImageFilename == "" {
		t.Fatal("expected an image filename")
	}
	if _, err := os.Stat(filepath.Join(env.uploads.Dir, item.ImageFilename)); err != nil {
		t.Errorf("expected artifact on disk: %v", err)
	}

	page, err := http.Get(env.server.URL + "/")
	if err != nil {
		t.Fatalf("index request: %v", err)
	}
	if body := readBody(t, page); !strings.Contains(body, "Blue Backpack") {
		t.Error("expected the new item on the index page")
	}
}

func TestReportEmptyName(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp := postReport(t, http.DefaultClient, env.server.URL, map[string]string{"name": "   "}, testJPEGBytes(t))
	body := readBody(t, resp)

	if !strings.Contains(body, "Item name is required.") {
		t.Error("expected the name-required message on the redisplayed form")
	}

	items, _ := store.ListItems(context.Background(), env.database, store.ViewAdmin)
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	entries, _ := os.ReadDir(env.uploads.Dir)
	if len(entries) != 0 {
		t.Errorf("expected no artifacts, found %d", len(entries))
	}
}

func TestReportMissingImage(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp := postReport(t, http.DefaultClient, env.server.URL, map[string]string{"name": "Scarf"}, nil)
	if body := readBody(t, resp); !strings.Contains(body, "Image file is required.") {
		t.Error("expected the image-required message")
	}
}

func TestReportRedisplaysEnteredValues(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp := postReport(t, http.DefaultClient, env.server.URL, map[string]string{
		"name":        "Scarf",
		"description": "Red wool",
		"location":    "Library",
	}, []byte("not an image"))
	body := readBody(t, resp)

	if !strings.Contains(body, "Unsupported image type") {
		t.Error("expected the unsupported-type message")
	}
	for _, v := range []string{"Scarf", "Red wool", "Library"} {
		if !strings.Contains(body, v) {
			t.Errorf("expected redisplayed form to keep %q", v)
		}
	}
}

func TestReportOversizedUpload(t *testing.T) {
	env := setupWebServer(t, true, 1<<20)

	big := bytes.Repeat([]byte("x"), 2<<20)
	resp := postReport(t, http.DefaultClient, env.server.URL, map[string]string{"name": "Big"}, big)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, "keep uploads under 1MB") {
		t.Error("expected the upload cap message")
	}
}

func TestClaimFlow(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := noRedirect(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, env.database, store.ItemParams{Name: "Wallet"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	resp, err := client.Post(env.server.URL+"/items/"+strconv.FormatInt(item.ID, 10)+"/claim", "", nil)
	if err != nil {
		t.Fatalf("claim request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}

	got, _ := store.GetItem(ctx, env.database, item.ID)
	if got.Status != model.ItemStatusClaimed {
		t.Errorf("expected status 'claimed', got %q", got.Status)
	}
}

func TestClaimMissingItem(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := noRedirect(t)

	resp, err := client.Post(env.server.URL+"/items/999/claim", "", nil)
	if err != nil {
		t.Fatalf("claim request: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/?msg=notfound" {
		t.Errorf("expected redirect to /?msg=notfound, got %q", loc)
	}
}

func TestItemDetailNotFound(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp, err := http.Get(env.server.URL + "/items/999")
	if err != nil {
		t.Fatalf("detail request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := noRedirect(t)

	resp, err := client.Get(env.server.URL + "/admin")
	if err != nil {
		t.Fatalf("admin request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/admin/login") {
		t.Errorf("expected redirect to login, got %q", loc)
	}
}

func TestAdminLoginWrongToken(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp, err := http.PostForm(env.server.URL+"/admin/login", url.Values{"token": {"wrong"}})
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, "Incorrect admin token.") {
		t.Error("expected the wrong-token message")
	}
}

func TestAdminLoginRejectsUnsafeNext(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.PostForm(env.server.URL+"/admin/login",
		url.Values{"token": {testAdminToken}, "next": {"//evil.com/phish"}})
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/admin" {
		t.Errorf("unsafe next must fall back to /admin, got %q", loc)
	}
}

func TestAdminRestore(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := adminClient(t, env)
	ctx := context.Background()

	item, _ := store.CreateItem(ctx, env.database, store.ItemParams{Name: "Phone"})
	store.SetItemStatus(ctx, env.database, item.ID, model.ItemStatusClaimed)

	resp, err := client.Post(env.server.URL+"/admin/items/"+strconv.FormatInt(item.ID, 10)+"/restore", "", nil)
	if err != nil {
		t.Fatalf("restore request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}

	got, _ := store.GetItem(ctx, env.database, item.ID)
	if got.Status != model.ItemStatusAvailable {
		t.Errorf("expected status 'available' after restore, got %q", got.Status)
	}
}

func TestAdminDeleteRemovesArtifact(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := adminClient(t, env)
	ctx := context.Background()

	filename, err := env.uploads.Save(".jpg", testJPEGBytes(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	item, _ := store.CreateItem(ctx, env.database, store.ItemParams{Name: "Jacket", ImageFilename: filename})

	resp, err := client.Post(env.server.URL+"/admin/items/"+strconv.FormatInt(item.ID, 10)+"/delete", "", nil)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	resp.Body.Close()

	if _, err := store.GetItem(ctx, env.database, item.ID); err == nil {
		t.Error("expected the item row to be gone")
	}
	if _, err := os.Stat(filepath.Join(env.uploads.Dir, filename)); !os.IsNotExist(err) {
		t.Error("expected the artifact to be gone")
	}
}

func TestAdminLogoutRevokesSession(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)
	client := adminClient(t, env)

	resp, err := client.Get(env.server.URL + "/admin")
	if err != nil {
		t.Fatalf("admin request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 while logged in, got %d", resp.StatusCode)
	}

	logout, err := client.Post(env.server.URL+"/admin/logout", "", nil)
	if err != nil {
		t.Fatalf("logout request: %v", err)
	}
	logout.Body.Close()

	after, err := client.Get(env.server.URL + "/admin")
	if err != nil {
		t.Fatalf("admin request after logout: %v", err)
	}
	after.Body.Close()
	if after.StatusCode != http.StatusSeeOther {
		t.Errorf("expected redirect to login after logout, got %d", after.StatusCode)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	env := setupWebServer(t, false, 10<<20)

	resp, err := http.Get(env.server.URL + "/admin")
	if err != nil {
		t.Fatalf("admin request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when no admin token is configured, got %d", resp.StatusCode)
	}
}

func TestUploadsServed(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	name, err := env.uploads.Save(".jpg", testJPEGBytes(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp, err := http.Get(env.server.URL + "/uploads/" + name)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
}

func TestUploadsUnknownName(t *testing.T) {
	env := setupWebServer(t, true, 10<<20)

	resp, err := http.Get(env.server.URL + "/uploads/nosuchfile.jpg")
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
