package home

import (
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/photoportfolio/cmd/website/internal/viewmodels"
	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/adampresley/photoportfolio/pkg/services"
)

type HomeHandlers interface {
	HomePage(w http.ResponseWriter, r *http.Request)
}

type HomeControllerConfig struct {
	CredentialService services.CredentialServicer
	EditRequested     bool
	GalleryService    services.GalleryServicer
	ImageService      services.ImageServicer
	ProfileService    services.ProfileServicer
	Renderer          rendering.TemplateRenderer
}

type HomeController struct {
	credentialService services.CredentialServicer
	editRequested     bool
	galleryService    services.GalleryServicer
	imageService      services.ImageServicer
	profileService    services.ProfileServicer
	renderer          rendering.TemplateRenderer
}

func NewHomeController(config HomeControllerConfig) HomeController {
	return HomeController{
		credentialService: config.CredentialService,
		editRequested:     config.EditRequested,
		galleryService:    config.GalleryService,
		imageService:      config.ImageService,
		profileService:    config.ProfileService,
		renderer:          config.Renderer,
	}
}

/*
GET /
*/
func (c HomeController) HomePage(w http.ResponseWriter, r *http.Request) {
	var (
		err    error
		prompt models.Prompt
	)

	pageName := "pages/home"
	category := models.Category(httphelpers.GetFromRequest[string](r, "category"))

	if category == "" {
		category = models.CategoryAll
	}

	viewData := viewmodels.HomePage{
		BaseViewModel: viewmodels.BaseViewModel{
			Message:            httphelpers.GetFromRequest[string](r, "message"),
			IsHtmx:             httphelpers.IsHtmx(r),
			JavascriptIncludes: []rendering.JavascriptInclude{},
		},
		ActiveCategory: string(category),
		Categories:     []string{string(models.CategoryAll)},
		GalleryEmpty:   c.galleryService.IsEmpty(),
		ImageBusy:      c.imageService.Busy(),
		IsOwner:        c.credentialService.IsAuthorized(),
		Photos:         []viewmodels.HomePagePhoto{},
		Profile:        viewmodels.NewProfileView(c.profileService.Current()),
	}

	for _, cat := range models.Categories {
		viewData.Categories = append(viewData.Categories, string(cat))
	}

	for _, photo := range c.galleryService.Filter(category) {
		viewData.Photos = append(viewData.Photos, viewmodels.NewHomePagePhoto(photo))
	}

	if prompt, err = c.credentialService.Prompt(r.Context(), c.editRequested); err != nil {
		slog.Error("error determining owner prompt", "error", err)
		viewData.IsError = true
		viewData.Message = "An unexpected error occurred reading the owner password."
	}

	viewData.Prompt = string(prompt)
	c.renderer.Render(pageName, viewData, w)
}
