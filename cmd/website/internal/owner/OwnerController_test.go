package owner

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/adampresley/photoportfolio/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	credentials services.CredentialService
	gallery     services.GalleryService
	images      services.ImageServicer
	profile     services.ProfileService
	router      *http.ServeMux
}

type testAppOptions struct {
	editRequested bool
	images        services.ImageServicer
}

func newTestApp(t *testing.T) testApp {
	return newTestAppWithOptions(t, testAppOptions{editRequested: true})
}

func newTestAppWithOptions(t *testing.T, options testAppOptions) testApp {
	t.Helper()

	db, err := services.ConnectDatabase("file:" + filepath.Join(t.TempDir(), "owner.db"))
	require.NoError(t, err)
	require.NoError(t, services.MigrateDatabase(db))

	records := services.NewRecordService(services.RecordServiceConfig{
		DB:         db,
		QuotaBytes: 5 << 20,
	})

	if options.images == nil {
		images := services.NewImageService(services.ImageServiceConfig{
			MaxWidth:    100,
			Quality:     80,
			ShutdownCtx: context.Background(),
		})

		t.Cleanup(images.Stop)
		options.images = images
	}

	renderer, err := rendering.NewGoTemplateRenderer(rendering.GoTemplateRendererConfig{
		TemplateDir:       "app",
		TemplateExtension: ".html",
		TemplateFS:        os.DirFS("../.."),
		PagesDir:          "pages",
	})
	require.NoError(t, err)

	app := testApp{
		credentials: services.NewCredentialService(services.CredentialServiceConfig{RecordService: records}),
		gallery:     services.NewGalleryService(services.GalleryServiceConfig{RecordService: records}),
		images:      options.images,
		profile:     services.NewProfileService(services.ProfileServiceConfig{RecordService: records}),
		router:      http.NewServeMux(),
	}

	require.NoError(t, app.gallery.Hydrate(context.Background()))
	require.NoError(t, app.profile.Hydrate(context.Background()))

	controller := NewOwnerController(OwnerControllerConfig{
		CredentialService: app.credentials,
		EditRequested:     options.editRequested,
		GalleryService:    app.gallery,
		ImageService:      app.images,
		ProfileService:    app.profile,
		Renderer:          renderer,
	})

	app.router.HandleFunc("POST /owner/setup", controller.SetupAction)
	app.router.HandleFunc("POST /owner/login", controller.LoginAction)
	app.router.HandleFunc("GET /owner/logout", controller.LogoutAction)
	app.router.HandleFunc("POST /owner/photos", controller.AddPhotoAction)
	app.router.HandleFunc("POST /owner/photos/{id}/delete", controller.DeletePhotoAction)
	app.router.HandleFunc("GET /owner/profile", controller.EditProfilePage)
	app.router.HandleFunc("POST /owner/profile", controller.SaveProfileAction)
	app.router.HandleFunc("POST /owner/profile/image", controller.UploadProfileImageAction)
	app.router.HandleFunc("POST /owner/profile/discard", controller.DiscardProfileAction)

	return app
}

/*
slowImages hands back a fixed data URL, but only after the test lets
it finish.
*/
type slowImages struct {
	started chan struct{}
	release chan struct{}
}

func newSlowImages() slowImages {
	return slowImages{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s slowImages) Busy() bool { return false }
func (s slowImages) Stop()      {}

func (s slowImages) Transcode(ctx context.Context, r io.Reader) (string, error) {
	close(s.started)
	<-s.release
	return services.DataURLPrefix + "AAAA", nil
}

func (s slowImages) TranscodeAsync(ctx context.Context, r io.Reader) (<-chan services.TranscodeResult, error) {
	result := make(chan services.TranscodeResult, 1)
	dataURL, err := s.Transcode(ctx, r)
	result <- services.TranscodeResult{DataURL: dataURL, Err: err}
	close(result)
	return result, nil
}

type blockingReader struct {
	release chan struct{}
}

func (b blockingReader) Read(p []byte) (int, error) {
	<-b.release
	return 0, io.EOF
}

func (a testApp) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(r)
}

func (a testApp) postImage(t *testing.T, path string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	return a.serve(newImageRequest(t, path, fields, image))
}

func (a testApp) serve(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func newImageRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	body := bytes.Buffer{}
	writer := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}

	part, err := writer.CreateFormFile("image", "upload.png")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y % 256), B: 40, A: 255})
		}
	}

	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func messageFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return location.Query().Get("message")
}

func TestSetupActionAuthorizesOwner(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/owner/setup", url.Values{"password": {"secret1"}})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.True(t, app.credentials.IsAuthorized())
}

func TestSetupActionRejectsShortPassword(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/owner/setup", url.Values{"password": {"abc"}})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.NotEmpty(t, messageFrom(t, w))
	assert.False(t, app.credentials.IsAuthorized())
}

func TestSetupActionRefusedWithoutEditMode(t *testing.T) {
	app := newTestAppWithOptions(t, testAppOptions{editRequested: false})

	w := app.postForm("/owner/setup", url.Values{"password": {"secret1"}})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, app.credentials.IsAuthorized())

	state, err := app.credentials.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.GateUnprovisioned, state)
}

func TestLoginActionRefusedWithoutEditMode(t *testing.T) {
	app := newTestAppWithOptions(t, testAppOptions{editRequested: false})
	require.NoError(t, app.credentials.Provision(context.Background(), "secret1"))
	app.credentials.Deauthorize()

	w := app.postForm("/owner/login", url.Values{"password": {"secret1"}})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, app.credentials.IsAuthorized())
}

func TestLoginActionWithWrongPassword(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.credentials.Provision(context.Background(), "secret1"))
	app.credentials.Deauthorize()

	w := app.postForm("/owner/login", url.Values{"password": {"wrong"}})

	assert.Equal(t, "Incorrect password.", messageFrom(t, w))
	assert.False(t, app.credentials.IsAuthorized())

	w = app.postForm("/owner/login", url.Values{"password": {"secret1"}})

	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.True(t, app.credentials.IsAuthorized())
}

func TestLogoutActionClearsAuthorization(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.credentials.Provision(context.Background(), "secret1"))

	r := httptest.NewRequest(http.MethodGet, "/owner/logout", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, r)

	assert.False(t, app.credentials.IsAuthorized())
}

func TestAddPhotoActionStoresTranscodedImage(t *testing.T) {
	app := newTestApp(t)

	w := app.postImage(t, "/owner/photos", map[string]string{"title": "", "category": "Urban"}, pngBytes(t, 300, 150))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "Added 'Untitled'.", messageFrom(t, w))

	photos := app.gallery.Photos()
	require.Len(t, photos, 1)
	assert.Equal(t, models.CategoryUrban, photos[0].Category)
	assert.True(t, strings.HasPrefix(photos[0].Src, services.DataURLPrefix))
}

func TestAddPhotoActionRejectsNonImage(t *testing.T) {
	app := newTestApp(t)

	w := app.postImage(t, "/owner/photos", map[string]string{"category": "Urban"}, []byte("not an image"))

	assert.Equal(t, "That file could not be read as an image.", messageFrom(t, w))
	assert.True(t, app.gallery.IsEmpty())
}

func TestDeletePhotoActionNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)

	photo, err := app.gallery.Append(context.Background(), models.PhotoDraft{
		Src:      services.DataURLPrefix + "AAAA",
		Title:    "Dunes",
		Category: models.CategoryLandscape,
	})
	require.NoError(t, err)

	app.postForm("/owner/photos/"+photo.ID+"/delete", url.Values{})
	assert.Len(t, app.gallery.Photos(), 1)

	app.postForm("/owner/photos/"+photo.ID+"/delete", url.Values{"confirm": {"true"}})
	assert.True(t, app.gallery.IsEmpty())
}

func TestSaveProfileActionCommitsDraft(t *testing.T) {
	app := newTestApp(t)

	r := httptest.NewRequest(http.MethodGet, "/owner/profile", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, app.profile.ActiveDraft())

	w = app.postForm("/owner/profile", url.Values{"name": {"JO K."}, "email": {"jo@example.com"}})

	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "JO K.", app.profile.Current().Name)
	assert.Equal(t, "jo@example.com", app.profile.Current().Email)
	assert.Nil(t, app.profile.ActiveDraft())
}

func TestDiscardProfileActionKeepsCommittedProfile(t *testing.T) {
	app := newTestApp(t)
	original := app.profile.Current()

	draft := app.profile.OpenDraft()
	require.NoError(t, draft.Update(func(p *models.Profile) { p.Name = "CHANGED" }))

	app.postForm("/owner/profile/discard", url.Values{})

	assert.Equal(t, original, app.profile.Current())
	assert.Nil(t, app.profile.ActiveDraft())
}

func TestSaveProfileActionWithoutDraft(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/owner/profile", url.Values{"name": {"JO K."}})

	assert.Equal(t, "Profile editing was closed.", messageFrom(t, w))
	assert.Equal(t, models.DefaultProfile().Name, app.profile.Current().Name)
}

func TestUploadProfileImageActionSetsDraftImage(t *testing.T) {
	app := newTestApp(t)
	draft := app.profile.OpenDraft()

	w := app.postImage(t, "/owner/profile/image?target=cover", nil, pngBytes(t, 200, 100))

	assert.Equal(t, "/owner/profile", w.Header().Get("Location"))
	assert.True(t, strings.HasPrefix(draft.Profile().CoverImage, services.DataURLPrefix))
	assert.Equal(t, models.DefaultProfile().CoverImage, app.profile.Current().CoverImage)
}

func TestUploadProfileImageActionRejectsUnknownTarget(t *testing.T) {
	app := newTestApp(t)
	draft := app.profile.OpenDraft()
	before := draft.Profile()

	w := app.postImage(t, "/owner/profile/image?target=banner", nil, pngBytes(t, 20, 20))

	assert.Equal(t, "Unknown profile image.", messageFrom(t, w))
	assert.Equal(t, before, draft.Profile())
}

func TestUploadProfileImageActionWhileBusy(t *testing.T) {
	app := newTestApp(t)
	draft := app.profile.OpenDraft()
	before := draft.Profile()

	release := make(chan struct{})
	pending, err := app.images.TranscodeAsync(context.Background(), blockingReader{release: release})
	require.NoError(t, err)

	w := app.postImage(t, "/owner/profile/image?target=about", nil, pngBytes(t, 20, 20))

	close(release)
	<-pending

	assert.Equal(t, "Another image is still processing. Please wait a moment.", messageFrom(t, w))
	assert.Equal(t, before, draft.Profile())
}

func TestUploadProfileImageActionDropsResultForClosedDraft(t *testing.T) {
	images := newSlowImages()
	app := newTestAppWithOptions(t, testAppOptions{editRequested: true, images: images})
	draft := app.profile.OpenDraft()

	r := newImageRequest(t, "/owner/profile/image?target=cover", nil, pngBytes(t, 20, 20))
	done := make(chan *httptest.ResponseRecorder, 1)

	go func() {
		done <- app.serve(r)
	}()

	<-images.started
	app.profile.Discard(draft)
	close(images.release)

	w := <-done

	assert.Equal(t, "The image was discarded because editing was closed.", messageFrom(t, w))
	assert.Equal(t, models.DefaultProfile().CoverImage, draft.Profile().CoverImage)
	assert.Equal(t, models.DefaultProfile(), app.profile.Current())
	assert.Nil(t, app.profile.ActiveDraft())
}
