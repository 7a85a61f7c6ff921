package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adampresley/photoportfolio/pkg/models"
)

type ProfileServicer interface {
	ActiveDraft() *ProfileDraft
	Commit(ctx context.Context, draft *ProfileDraft) error
	Current() models.Profile
	Discard(draft *ProfileDraft)
	Hydrate(ctx context.Context) error
	OpenDraft() *ProfileDraft
}

type ProfileServiceConfig struct {
	RecordService RecordServicer
}

/*
ProfileService holds the committed profile. Edits happen on a
ProfileDraft, which readers of the committed profile never see, and
are written to the store as a whole record on Commit.
*/
type ProfileService struct {
	records RecordServicer
	state   *profileState
}

type profileState struct {
	mu      sync.RWMutex
	profile models.Profile
	draft   *ProfileDraft
}

/*
ProfileDraft is an isolated, editable copy of the profile. Once it has
been committed or discarded it no longer accepts changes.
*/
type ProfileDraft struct {
	mu      sync.Mutex
	profile models.Profile
	closed  bool
}

func NewProfileService(config ProfileServiceConfig) ProfileService {
	return ProfileService{
		records: config.RecordService,
		state:   &profileState{profile: models.DefaultProfile()},
	}
}

func (s ProfileService) Hydrate(ctx context.Context) error {
	var (
		err     error
		profile models.Profile
		found   bool
	)

	profile, found, err = LoadRecord[models.Profile](ctx, s.records, RecordKeyProfile)

	if errors.Is(err, models.ErrCorruptRecord) {
		slog.Error("stored profile is unreadable, using the default profile", "error", err)
		found, err = false, nil
	}

	if err != nil {
		return fmt.Errorf("error loading profile: %w", err)
	}

	if !found {
		profile = models.DefaultProfile()
	}

	s.state.mu.Lock()
	s.state.profile = profile
	s.state.mu.Unlock()

	slog.Info("profile loaded", "fromStore", found)
	return nil
}

func (s ProfileService) Current() models.Profile {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	return s.state.profile
}

/*
OpenDraft returns the draft currently being edited, or starts a new
one from the committed profile.
*/
func (s ProfileService) OpenDraft() *ProfileDraft {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.draft != nil && !s.state.draft.isClosed() {
		return s.state.draft
	}

	s.state.draft = &ProfileDraft{profile: s.state.profile}
	return s.state.draft
}

func (s ProfileService) ActiveDraft() *ProfileDraft {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if s.state.draft == nil || s.state.draft.isClosed() {
		return nil
	}

	return s.state.draft
}

/*
Commit writes the draft to the store and, only once that succeeds,
makes it the committed profile. A failed save leaves the draft open so
the owner can retry or discard it.
*/
func (s ProfileService) Commit(ctx context.Context, draft *ProfileDraft) error {
	var (
		err error
	)

	if draft == nil {
		return fmt.Errorf("%w: no profile draft", models.ErrValidation)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	draft.mu.Lock()
	defer draft.mu.Unlock()

	if draft.closed {
		return fmt.Errorf("%w: profile draft is closed", models.ErrValidation)
	}

	if err = SaveRecord(ctx, s.records, RecordKeyProfile, draft.profile); err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}

	s.state.profile = draft.profile
	draft.closed = true

	if s.state.draft == draft {
		s.state.draft = nil
	}

	slog.Info("profile saved")
	return nil
}

func (s ProfileService) Discard(draft *ProfileDraft) {
	if draft == nil {
		return
	}

	draft.mu.Lock()
	draft.closed = true
	draft.mu.Unlock()

	s.state.mu.Lock()
	if s.state.draft == draft {
		s.state.draft = nil
	}
	s.state.mu.Unlock()
}

func (d *ProfileDraft) Profile() models.Profile {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.profile
}

/*
Update applies changes to the draft. It returns models.ErrDiscarded if
the draft was already committed or discarded.
*/
func (d *ProfileDraft) Update(change func(p *models.Profile)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return models.ErrDiscarded
	}

	change(&d.profile)
	return nil
}

func (d *ProfileDraft) SetImage(target models.ProfileImageTarget, dataURL string) error {
	switch target {
	case models.ProfileImageCover:
		return d.Update(func(p *models.Profile) { p.CoverImage = dataURL })
	case models.ProfileImageAbout:
		return d.Update(func(p *models.Profile) { p.AboutImage = dataURL })
	}

	return fmt.Errorf("%w: unknown profile image '%s'", models.ErrValidation, target)
}

func (d *ProfileDraft) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}
