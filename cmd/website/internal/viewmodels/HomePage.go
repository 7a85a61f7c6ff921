package viewmodels

import (
	"html/template"

	"github.com/adampresley/photoportfolio/pkg/models"
)

type HomePage struct {
	BaseViewModel

	ActiveCategory string
	Categories     []string
	GalleryEmpty   bool
	ImageBusy      bool
	IsOwner        bool
	Photos         []HomePagePhoto
	Profile        ProfileView
	Prompt         string
}

type HomePagePhoto struct {
	ID       string
	Src      template.URL
	Title    string
	Category string
}

type ProfileView struct {
	models.Profile

	CoverImageURL template.URL
	AboutImageURL template.URL
}

/*
NewProfileView wraps a profile for templates. Image fields hold either
an external URL or a data URL we produced ourselves, so they are marked
safe for src attributes.
*/
func NewProfileView(profile models.Profile) ProfileView {
	return ProfileView{
		Profile:       profile,
		CoverImageURL: template.URL(profile.CoverImage),
		AboutImageURL: template.URL(profile.AboutImage),
	}
}

func NewHomePagePhoto(photo models.Photo) HomePagePhoto {
	return HomePagePhoto{
		ID:       photo.ID,
		Src:      template.URL(photo.Src),
		Title:    photo.Title,
		Category: string(photo.Category),
	}
}
