package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/adampresley/adamgokit/slices"
	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/google/uuid"
)

const maxIDAttempts = 5

type GalleryServicer interface {
	Append(ctx context.Context, draft models.PhotoDraft) (models.Photo, error)
	Filter(category models.Category) []models.Photo
	Hydrate(ctx context.Context) error
	IsEmpty() bool
	Photos() []models.Photo
	Remove(ctx context.Context, id string, confirmed bool) (bool, error)
}

type GalleryServiceConfig struct {
	NewID         func() (string, error)
	RecordService RecordServicer
}

/*
GalleryService owns the in-memory photo collection. The durable copy
is always written before the in-memory one changes, so a failed save
leaves both exactly as they were.
*/
type GalleryService struct {
	newID   func() (string, error)
	records RecordServicer
	state   *galleryState
}

type galleryState struct {
	mu     sync.RWMutex
	photos []models.Photo
}

func NewGalleryService(config GalleryServiceConfig) GalleryService {
	if config.NewID == nil {
		config.NewID = newPhotoID
	}

	return GalleryService{
		newID:   config.NewID,
		records: config.RecordService,
		state:   &galleryState{photos: []models.Photo{}},
	}
}

func newPhotoID() (string, error) {
	id, err := uuid.NewV7()

	if err != nil {
		return "", fmt.Errorf("error generating photo id: %w", err)
	}

	return id.String(), nil
}

func (s GalleryService) Hydrate(ctx context.Context) error {
	var (
		err    error
		photos []models.Photo
		found  bool
	)

	photos, found, err = LoadRecord[[]models.Photo](ctx, s.records, RecordKeyPhotos)

	if errors.Is(err, models.ErrCorruptRecord) {
		slog.Error("stored photos are unreadable, starting with an empty gallery", "error", err)
		photos, found, err = nil, false, nil
	}

	if err != nil {
		return fmt.Errorf("error loading photos: %w", err)
	}

	if !found || photos == nil {
		photos = []models.Photo{}
	}

	s.state.mu.Lock()
	s.state.photos = photos
	s.state.mu.Unlock()

	slog.Info("gallery loaded", "numPhotos", len(photos))
	return nil
}

func (s GalleryService) Append(ctx context.Context, draft models.PhotoDraft) (models.Photo, error) {
	var (
		err error
		id  string
	)

	if draft.Src == "" {
		return models.Photo{}, fmt.Errorf("%w: a photo needs an image", models.ErrValidation)
	}

	if !draft.Category.IsValid() {
		return models.Photo{}, fmt.Errorf("%w: unknown category '%s'", models.ErrValidation, draft.Category)
	}

	title := strings.TrimSpace(draft.Title)

	if title == "" {
		title = models.DefaultPhotoTitle
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if id, err = s.uniqueID(); err != nil {
		return models.Photo{}, err
	}

	photo := models.Photo{
		ID:       id,
		Src:      draft.Src,
		Title:    title,
		Category: draft.Category,
	}

	updated := make([]models.Photo, 0, len(s.state.photos)+1)
	updated = append(updated, s.state.photos...)
	updated = append(updated, photo)

	if err = SaveRecord(ctx, s.records, RecordKeyPhotos, updated); err != nil {
		return models.Photo{}, fmt.Errorf("error saving photos: %w", err)
	}

	s.state.photos = updated

	slog.Info("photo added", "id", photo.ID, "title", photo.Title, "category", photo.Category)
	return photo, nil
}

/*
uniqueID asks the generator for an id that is not already in the
collection. The caller must hold the state lock.
*/
func (s GalleryService) uniqueID() (string, error) {
	existing := slices.Map(s.state.photos, func(input models.Photo, index int) string {
		return input.ID
	})

	for range maxIDAttempts {
		id, err := s.newID()

		if err != nil {
			return "", err
		}

		if id != "" && !slices.IsInSlice(id, existing) {
			return id, nil
		}

		slog.Warn("photo id collision, generating another", "id", id)
	}

	return "", fmt.Errorf("unable to generate a unique photo id after %d attempts", maxIDAttempts)
}

/*
Remove deletes the photo with the given id. Nothing happens unless the
owner confirmed the removal. An unknown id is not an error; it returns
false and writes nothing.
*/
func (s GalleryService) Remove(ctx context.Context, id string, confirmed bool) (bool, error) {
	var (
		err error
	)

	if !confirmed {
		return false, nil
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	updated := make([]models.Photo, 0, len(s.state.photos))

	for _, photo := range s.state.photos {
		if photo.ID != id {
			updated = append(updated, photo)
		}
	}

	if len(updated) == len(s.state.photos) {
		slog.Debug("photo to remove not found", "id", id)
		return false, nil
	}

	if err = SaveRecord(ctx, s.records, RecordKeyPhotos, updated); err != nil {
		return false, fmt.Errorf("error saving photos: %w", err)
	}

	s.state.photos = updated

	slog.Info("photo removed", "id", id)
	return true, nil
}

/*
Filter returns the photos in the given category in insertion order.
"All" (or an empty category) returns every photo. The result is a copy.
*/
func (s GalleryService) Filter(category models.Category) []models.Photo {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	result := []models.Photo{}

	for _, photo := range s.state.photos {
		if category == models.CategoryAll || category == "" || photo.Category == category {
			result = append(result, photo)
		}
	}

	return result
}

func (s GalleryService) Photos() []models.Photo {
	return s.Filter(models.CategoryAll)
}

func (s GalleryService) IsEmpty() bool {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	return len(s.state.photos) == 0
}
