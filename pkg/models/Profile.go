package models

import (
	"github.com/adampresley/adamgokit/slices"
)

type Profile struct {
	Name         string `json:"name"`
	Tagline      string `json:"tagline"`
	Bio          string `json:"bio"`
	CoverImage   string `json:"coverImage"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	AboutImage   string `json:"aboutImage"`
	AboutText    string `json:"aboutText"`
	StatYears    string `json:"statYears"`
	StatProjects string `json:"statProjects"`
	StatAwards   string `json:"statAwards"`
}

func DefaultProfile() Profile {
	return Profile{
		Name:         "ALEX R.",
		Tagline:      "Visual Storyteller.",
		Bio:          "I capture the moments that others miss. Specializing in high-contrast urban and landscape photography.",
		CoverImage:   "https://images.unsplash.com/photo-1492691527719-9d1e07e534b4?auto=format&fit=crop&q=80&w=2000",
		Email:        "contact@alexr.com",
		Phone:        "+1 (555) 000-0000",
		Address:      "123 Creative Ave, NY",
		AboutImage:   "https://images.unsplash.com/photo-1554048612-387768052bf7?auto=format&fit=crop&q=80&w=800",
		AboutText:    "My journey began with a cheap film camera and a desire to document the world around me. I believe that every image should evoke an emotion.",
		StatYears:    "5+",
		StatProjects: "200+",
		StatAwards:   "15",
	}
}

type ProfileImageTarget string

const (
	ProfileImageCover ProfileImageTarget = "cover"
	ProfileImageAbout ProfileImageTarget = "about"
)

var ProfileImageTargets = []ProfileImageTarget{
	ProfileImageCover,
	ProfileImageAbout,
}

func (t ProfileImageTarget) IsValid() bool {
	return slices.IsInSlice(t, ProfileImageTargets)
}
