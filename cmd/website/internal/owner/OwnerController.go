package owner

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/photoportfolio/cmd/website/internal/viewmodels"
	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/adampresley/photoportfolio/pkg/services"
)

type OwnerControllerConfig struct {
	CredentialService services.CredentialServicer
	EditRequested     bool
	GalleryService    services.GalleryServicer
	ImageService      services.ImageServicer
	MaxUploadBytes    int64
	ProfileService    services.ProfileServicer
	Renderer          rendering.TemplateRenderer
}

type OwnerController struct {
	credentialService services.CredentialServicer
	editRequested     bool
	galleryService    services.GalleryServicer
	imageService      services.ImageServicer
	maxUploadBytes    int64
	profileService    services.ProfileServicer
	renderer          rendering.TemplateRenderer
}

func NewOwnerController(config OwnerControllerConfig) OwnerController {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = services.DefaultMaxUploadBytes
	}

	return OwnerController{
		credentialService: config.CredentialService,
		editRequested:     config.EditRequested,
		galleryService:    config.GalleryService,
		imageService:      config.ImageService,
		maxUploadBytes:    config.MaxUploadBytes,
		profileService:    config.ProfileService,
		renderer:          config.Renderer,
	}
}

/*
POST /owner/setup
*/
func (c OwnerController) SetupAction(w http.ResponseWriter, r *http.Request) {
	if !c.editRequested {
		slog.Warn("owner password setup attempted without edit mode")
		httphelpers.WriteText(w, http.StatusForbidden, "Owner editing is not enabled")
		return
	}

	password := httphelpers.GetFromRequest[string](r, "password")

	if err := c.credentialService.Provision(r.Context(), password); err != nil {
		slog.Info("owner password setup rejected", "error", err)
		redirectWithMessage(w, r, "/", userMessage(err))
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

/*
POST /owner/login
*/
func (c OwnerController) LoginAction(w http.ResponseWriter, r *http.Request) {
	if !c.editRequested {
		slog.Warn("owner sign in attempted without edit mode")
		httphelpers.WriteText(w, http.StatusForbidden, "Owner editing is not enabled")
		return
	}

	password := httphelpers.GetFromRequest[string](r, "password")

	if err := c.credentialService.Verify(r.Context(), password); err != nil {
		slog.Info("owner sign in rejected", "error", err)
		redirectWithMessage(w, r, "/", userMessage(err))
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

/*
GET /owner/logout
*/
func (c OwnerController) LogoutAction(w http.ResponseWriter, r *http.Request) {
	c.credentialService.Deauthorize()
	http.Redirect(w, r, "/", http.StatusFound)
}

/*
POST /owner/photos
*/
func (c OwnerController) AddPhotoAction(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		dataURL string
		photo   models.Photo
	)

	if dataURL, err = c.transcodeUpload(w, r); err != nil {
		slog.Error("error processing uploaded photo", "error", err)
		redirectWithMessage(w, r, "/", userMessage(err))
		return
	}

	photo, err = c.galleryService.Append(r.Context(), models.PhotoDraft{
		Src:      dataURL,
		Title:    httphelpers.GetFromRequest[string](r, "title"),
		Category: models.Category(httphelpers.GetFromRequest[string](r, "category")),
	})

	if err != nil {
		slog.Error("error adding photo", "error", err)
		redirectWithMessage(w, r, "/", userMessage(err))
		return
	}

	redirectWithMessage(w, r, "/", "Added '"+photo.Title+"'.")
}

/*
POST /owner/photos/{id}/delete
*/
func (c OwnerController) DeletePhotoAction(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		removed bool
	)

	id := httphelpers.GetFromRequest[string](r, "id")
	confirmed := httphelpers.GetFromRequest[string](r, "confirm") == "true"

	if removed, err = c.galleryService.Remove(r.Context(), id, confirmed); err != nil {
		slog.Error("error removing photo", "error", err, "id", id)
		redirectWithMessage(w, r, "/", userMessage(err))
		return
	}

	if !removed {
		slog.Info("photo not removed", "id", id, "confirmed", confirmed)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

/*
GET /owner/profile
*/
func (c OwnerController) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	draft := c.profileService.OpenDraft()

	viewData := viewmodels.ProfileEdit{
		BaseViewModel: viewmodels.BaseViewModel{
			Message:            httphelpers.GetFromRequest[string](r, "message"),
			IsHtmx:             httphelpers.IsHtmx(r),
			JavascriptIncludes: []rendering.JavascriptInclude{},
		},
		Draft:     viewmodels.NewProfileView(draft.Profile()),
		ImageBusy: c.imageService.Busy(),
	}

	c.renderer.Render("pages/profile-edit", viewData, w)
}

/*
POST /owner/profile/image?target=cover|about
*/
func (c OwnerController) UploadProfileImageAction(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		dataURL string
	)

	/*
	 * Read the target from the query string. Touching form values here
	 * would parse the upload before its size limit is in place.
	 */
	target := models.ProfileImageTarget(r.URL.Query().Get("target"))
	draft := c.profileService.ActiveDraft()

	if draft == nil {
		redirectWithMessage(w, r, "/", "Profile editing was closed.")
		return
	}

	if !target.IsValid() {
		slog.Warn("unknown profile image target", "target", target)
		redirectWithMessage(w, r, "/owner/profile", "Unknown profile image.")
		return
	}

	if dataURL, err = c.transcodeUpload(w, r); err != nil {
		slog.Error("error processing profile image", "error", err, "target", target)
		redirectWithMessage(w, r, "/owner/profile", userMessage(err))
		return
	}

	/*
	 * The draft may have been saved or cancelled while the image was
	 * processing. In that case the image is dropped.
	 */
	if err = draft.SetImage(target, dataURL); err != nil {
		slog.Info("profile image not applied", "error", err, "target", target)
		redirectWithMessage(w, r, "/owner/profile", userMessage(err))
		return
	}

	http.Redirect(w, r, "/owner/profile", http.StatusFound)
}

/*
POST /owner/profile
*/
func (c OwnerController) SaveProfileAction(w http.ResponseWriter, r *http.Request) {
	var (
		err error
	)

	draft := c.profileService.ActiveDraft()

	if draft == nil {
		redirectWithMessage(w, r, "/", "Profile editing was closed.")
		return
	}

	err = draft.Update(func(p *models.Profile) {
		p.Name = httphelpers.GetFromRequest[string](r, "name")
		p.Tagline = httphelpers.GetFromRequest[string](r, "tagline")
		p.Bio = httphelpers.GetFromRequest[string](r, "bio")
		p.AboutText = httphelpers.GetFromRequest[string](r, "aboutText")
		p.StatYears = httphelpers.GetFromRequest[string](r, "statYears")
		p.StatProjects = httphelpers.GetFromRequest[string](r, "statProjects")
		p.StatAwards = httphelpers.GetFromRequest[string](r, "statAwards")
		p.Email = httphelpers.GetFromRequest[string](r, "email")
		p.Phone = httphelpers.GetFromRequest[string](r, "phone")
		p.Address = httphelpers.GetFromRequest[string](r, "address")
	})

	if err == nil {
		err = c.profileService.Commit(r.Context(), draft)
	}

	if err != nil {
		slog.Error("error saving profile", "error", err)
		redirectWithMessage(w, r, "/owner/profile", userMessage(err))
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

/*
POST /owner/profile/discard
*/
func (c OwnerController) DiscardProfileAction(w http.ResponseWriter, r *http.Request) {
	c.profileService.Discard(c.profileService.ActiveDraft())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (c OwnerController) transcodeUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	var (
		err error
	)

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes+(1<<20))

	if err = r.ParseMultipartForm(32 << 20); err != nil {
		return "", fmt.Errorf("%w: the upload could not be read (%s)", models.ErrValidation, err.Error())
	}

	file, _, err := r.FormFile("image")

	if err != nil {
		return "", fmt.Errorf("%w: choose an image to upload", models.ErrValidation)
	}

	defer file.Close()
	return c.imageService.Transcode(r.Context(), file)
}

func redirectWithMessage(w http.ResponseWriter, r *http.Request, to, message string) {
	http.Redirect(w, r, to+"?message="+url.QueryEscape(message), http.StatusFound)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrIncorrectCredential):
		return "Incorrect password."
	case errors.Is(err, models.ErrLockedOut):
		return "Too many incorrect passwords. Please wait and try again."
	case errors.Is(err, models.ErrAlreadyProvisioned):
		return "An owner password has already been set."
	case errors.Is(err, models.ErrNotProvisioned):
		return "No owner password has been set yet."
	case errors.Is(err, models.ErrCapacity):
		return "Storage is full. Remove some photos or use smaller images."
	case errors.Is(err, models.ErrBusy):
		return "Another image is still processing. Please wait a moment."
	case errors.Is(err, models.ErrDecode), errors.Is(err, models.ErrEncode):
		return "That file could not be read as an image."
	case errors.Is(err, models.ErrDiscarded):
		return "The image was discarded because editing was closed."
	case errors.Is(err, models.ErrValidation):
		return err.Error()
	}

	return "An unexpected error occurred."
}
