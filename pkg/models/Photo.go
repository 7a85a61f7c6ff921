package models

import (
	"github.com/adampresley/adamgokit/slices"
)

type Category string

const (
	CategoryAll           Category = "All"
	CategoryLandscape     Category = "Landscape"
	CategoryPortrait      Category = "Portrait"
	CategoryUrban         Category = "Urban"
	CategoryBlackAndWhite Category = "Black & White"
)

const DefaultPhotoTitle = "Untitled"

/*
Categories is the list of categories a photo may belong to, in
display order.
*/
var Categories = []Category{
	CategoryLandscape,
	CategoryPortrait,
	CategoryUrban,
	CategoryBlackAndWhite,
}

func (c Category) IsValid() bool {
	return slices.IsInSlice(c, Categories)
}

type Photo struct {
	ID       string   `json:"id"`
	Src      string   `json:"src"`
	Title    string   `json:"title"`
	Category Category `json:"category"`
}

/*
PhotoDraft is what the owner submits when adding a photo. Src must
be the output of the image transcoder.
*/
type PhotoDraft struct {
	Src      string
	Title    string
	Category Category
}
