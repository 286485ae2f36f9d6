package service

import (
	"context"
	"strings"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"
	"jeevandhara/internal/repository"
)

// Deletion is refused while the account is part of an open request.
const (
	MsgDonorHasActiveRequest     = "Donor is assigned to an active blood request and cannot be deleted"
	MsgRequesterHasActiveRequest = "Requester has an active blood request and cannot be deleted"
)

// DonorSearch filters the donor directory.
type DonorSearch struct {
	BloodGroup models.BloodGroup
	Location   string
	Query      string
	Available  *bool
}

func (f DonorSearch) empty() bool {
	return f.BloodGroup == "" && f.Location == "" && f.Query == "" && f.Available == nil
}

// PeopleService manages donor and requester records outside the auth flow.
type PeopleService struct {
	donors     repository.DonorRepository
	requesters repository.RequesterRepository
	requests   repository.BloodRequestRepository
	directory  *Directory
	cache      *cache.Cache
}

func NewPeopleService(
	donors repository.DonorRepository,
	requesters repository.RequesterRepository,
	requests repository.BloodRequestRepository,
	directory *Directory,
	c *cache.Cache,
) *PeopleService {
	return &PeopleService{donors: donors, requesters: requesters, requests: requests, directory: directory, cache: c}
}

// Donors lists donors matching f. The unfiltered first page is cached.
func (s *PeopleService) Donors(ctx context.Context, f DonorSearch, p PageRequest) (Listing[models.Donor], error) {
	if f.BloodGroup != "" && !f.BloodGroup.Valid() {
		return Listing[models.Donor]{}, models.NewValidationError("Invalid blood group: " + string(f.BloodGroup))
	}
	f.Location, f.Query = strings.TrimSpace(f.Location), strings.TrimSpace(f.Query)
	fetch := func(ctx context.Context) (Listing[models.Donor], error) {
		rows, total, err := s.donors.Search(ctx, repository.DonorFilter{
			BloodGroup: f.BloodGroup,
			Location:   f.Location,
			Query:      f.Query,
			Available:  f.Available,
		}, p.Bounds())
		if err != nil {
			return Listing[models.Donor]{}, err
		}
		return newListing(rows, total, p), nil
	}
	if !f.empty() || !p.first() {
		return fetch(ctx)
	}
	return cache.Aside(ctx, s.cache, cache.KeyDonors, cache.ListTTL, fetch)
}

func (s *PeopleService) Donor(ctx context.Context, id uint) (*models.Donor, error) {
	return s.donors.GetByID(ctx, id)
}

// UpdateDonor applies a profile patch. Account fields are ignored.
func (s *PeopleService) UpdateDonor(ctx context.Context, id uint, fields map[string]any) (*models.Donor, error) {
	a, err := s.update(ctx, models.KindDonor, id, fields)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDonors)
	return a.Profile.(*models.Donor), nil
}

// DeleteDonor removes a donor unless they hold an active request.
func (s *PeopleService) DeleteDonor(ctx context.Context, id uint) error {
	busy, err := s.requests.HasActiveForDonor(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return models.NewInvariantError(MsgDonorHasActiveRequest)
	}
	if err := s.donors.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.KeyDonors)
	return nil
}

// Requesters lists requesters, newest first.
func (s *PeopleService) Requesters(ctx context.Context, p PageRequest) (Listing[models.Requester], error) {
	rows, total, err := s.requesters.List(ctx, p.Bounds())
	if err != nil {
		return Listing[models.Requester]{}, err
	}
	return newListing(rows, total, p), nil
}

func (s *PeopleService) Requester(ctx context.Context, id uint) (*models.Requester, error) {
	return s.requesters.GetByID(ctx, id)
}

// UpdateRequester applies a profile patch. Account fields are ignored.
func (s *PeopleService) UpdateRequester(ctx context.Context, id uint, fields map[string]any) (*models.Requester, error) {
	a, err := s.update(ctx, models.KindRequester, id, fields)
	if err != nil {
		return nil, err
	}
	return a.Profile.(*models.Requester), nil
}

// DeleteRequester removes a requester unless they own an active request.
func (s *PeopleService) DeleteRequester(ctx context.Context, id uint) error {
	busy, err := s.requests.HasActiveForRequester(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return models.NewInvariantError(MsgRequesterHasActiveRequest)
	}
	return s.requesters.Delete(ctx, id)
}

// RequesterRequests lists every request a requester raised.
func (s *PeopleService) RequesterRequests(ctx context.Context, id uint) ([]models.BloodRequest, error) {
	if _, err := s.requesters.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.requests.ListByRequester(ctx, id)
}

func (s *PeopleService) update(ctx context.Context, kind models.UserKind, id uint, fields map[string]any) (*Account, error) {
	store, err := s.directory.Store(kind)
	if err != nil {
		return nil, err
	}
	return store.UpdateProfile(ctx, id, fields)
}
