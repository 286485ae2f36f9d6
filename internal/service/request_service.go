package service

import (
	"context"
	"time"

	"jeevandhara/internal/compatibility"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/observability"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Lifecycle messages.
const (
	MsgNotPending         = "Request is no longer pending"
	MsgNotAccepted        = "Request is not in accepted state"
	MsgNotYourRequest     = "You are not the donor for this request"
	MsgNotCancellable     = "Only pending or accepted requests can be cancelled"
	MsgDonorProfileAbsent = "Donor profile not found"
	eligibleDateLayout    = "Mon Jan 02 2006"
)

// IneligibleMessage is the accept rejection for a donor still in the
// cooldown window.
func IneligibleMessage(next time.Time) string {
	return "You are not eligible to donate yet. Next eligible date: " + next.Format(eligibleDateLayout)
}

// CreateRequestInput is the payload for a new blood request.
type CreateRequestInput struct {
	RequesterID        uint              `json:"requesterId"`
	PatientName        string            `json:"patientName" validate:"required,max=120"`
	PatientPhone       string            `json:"patientPhone" validate:"required,max=32"`
	BloodGroup         models.BloodGroup `json:"bloodGroup" validate:"required,bloodgroup"`
	HospitalName       string            `json:"hospitalName" validate:"required,max=200"`
	Location           string            `json:"location" validate:"required,max=255"`
	ContactNumber      string            `json:"contactNumber" validate:"required,max=32"`
	AdditionalDetails  string            `json:"additionalDetails"`
	Units              int               `json:"units" validate:"gte=0"`
	NotifyViaEmergency bool              `json:"notifyViaEmergency"`
}

// UpdateRequestInput carries optional field changes. Nil fields are left
// untouched.
type UpdateRequestInput struct {
	PatientName        *string               `json:"patientName" validate:"omitempty,max=120"`
	PatientPhone       *string               `json:"patientPhone" validate:"omitempty,max=32"`
	BloodGroup         *models.BloodGroup    `json:"bloodGroup" validate:"omitempty,bloodgroup"`
	HospitalName       *string               `json:"hospitalName" validate:"omitempty,max=200"`
	Location           *string               `json:"location" validate:"omitempty,max=255"`
	ContactNumber      *string               `json:"contactNumber" validate:"omitempty,max=32"`
	AdditionalDetails  *string               `json:"additionalDetails"`
	Units              *int                  `json:"units" validate:"omitempty,gte=1"`
	NotifyViaEmergency *bool                 `json:"notifyViaEmergency"`
	Status             *models.RequestStatus `json:"status" validate:"omitempty,oneof=pending accepted fulfilled cancelled"`
}

func (in UpdateRequestInput) fields() map[string]any {
	out := map[string]any{}
	if in.PatientName != nil {
		out["patient_name"] = *in.PatientName
	}
	if in.PatientPhone != nil {
		out["patient_phone"] = *in.PatientPhone
	}
	if in.BloodGroup != nil {
		out["blood_group"] = *in.BloodGroup
	}
	if in.HospitalName != nil {
		out["hospital_name"] = *in.HospitalName
	}
	if in.Location != nil {
		out["location"] = *in.Location
	}
	if in.ContactNumber != nil {
		out["contact_number"] = *in.ContactNumber
	}
	if in.AdditionalDetails != nil {
		out["additional_details"] = *in.AdditionalDetails
	}
	if in.Units != nil {
		out["units"] = *in.Units
	}
	if in.NotifyViaEmergency != nil {
		out["notify_via_emergency"] = *in.NotifyViaEmergency
	}
	if in.Status != nil {
		out["status"] = *in.Status
	}
	return out
}

// RequestService runs the blood request state machine.
type RequestService struct {
	requests   repository.BloodRequestRepository
	donors     repository.DonorRepository
	requesters repository.RequesterRepository
	recipients Recipients
	notify     Notifier
	now        func() time.Time
}

// NewRequestService wires the lifecycle engine.
func NewRequestService(
	requests repository.BloodRequestRepository,
	donors repository.DonorRepository,
	requesters repository.RequesterRepository,
	recipients Recipients,
	notify Notifier,
) *RequestService {
	return &RequestService{
		requests:   requests,
		donors:     donors,
		requesters: requesters,
		recipients: recipients,
		notify:     notify,
		now:        time.Now,
	}
}

func reject(op, reason string, err error) error {
	observability.RequestRejections.WithLabelValues(op, reason).Inc()
	return err
}

// Create persists a pending request. A requester caller always creates for
// themself; other callers must name the requester.
func (s *RequestService) Create(ctx context.Context, caller *Account, in CreateRequestInput) (req *models.BloodRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RequestService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	if caller != nil && caller.Kind == models.KindRequester {
		in.RequesterID = caller.ID
	}
	if in.RequesterID == 0 {
		return nil, models.NewValidationError("requesterId is required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.requesters.GetByID(ctx, in.RequesterID); err != nil {
		return nil, err
	}

	active, err := s.requests.HasActiveForRequester(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, reject("create", "duplicate_active", models.NewInvariantError(repository.MsgDuplicateActive))
	}

	req = &models.BloodRequest{
		RequesterID:        in.RequesterID,
		PatientName:        in.PatientName,
		PatientPhone:       in.PatientPhone,
		BloodGroup:         in.BloodGroup,
		HospitalName:       in.HospitalName,
		Location:           in.Location,
		ContactNumber:      in.ContactNumber,
		AdditionalDetails:  in.AdditionalDetails,
		Units:              max(in.Units, 1),
		NotifyViaEmergency: in.NotifyViaEmergency,
		Status:             models.RequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if models.HasCode(err, models.CodeInvariant) {
			observability.RequestRejections.WithLabelValues("create", "duplicate_active").Inc()
		}
		return nil, err
	}
	observability.RequestTransitions.WithLabelValues(string(models.RequestPending)).Inc()
	span.SetAttributes(attribute.Int("request.id", int(req.ID)))

	created := *req
	enqueue(s.notify, notifications.EventNewRequest, func(ctx context.Context) error {
		targets, err := s.donors.CompatibleTargets(ctx, compatibility.DonorsFor(created.BloodGroup))
		if err != nil {
			return err
		}
		name := s.recipients.DisplayName(ctx, models.KindRequester, created.RequesterID)
		msg := notifications.NewRequestMessage(&created, models.KindRequester, name)
		return s.notify.Deliver(ctx, msg, toTargets(models.KindDonor, targets)...)
	})
	if created.NotifyViaEmergency {
		enqueue(s.notify, notifications.EventEmergency, func(ctx context.Context) error {
			targets, err := emergencyTargets(ctx, s.recipients)
			if err != nil {
				return err
			}
			where := created.Location
			if where == "" {
				where = created.HospitalName
			}
			msg := notifications.EmergencyMessage(created.ID, created.BloodGroup, created.Units, where)
			return s.notify.Deliver(ctx, msg, targets...)
		})
	}
	return req, nil
}

// List returns open requests, newest first. Donors only see requests their
// blood group can serve.
func (s *RequestService) List(ctx context.Context, caller *Account, p PageRequest) (Listing[models.BloodRequest], error) {
	var groups []models.BloodGroup
	if caller != nil && caller.Kind == models.KindDonor {
		donor, err := s.donors.GetByID(ctx, caller.ID)
		if models.HasCode(err, models.CodeNotFound) {
			return Listing[models.BloodRequest]{}, models.NewNotFoundError(MsgDonorProfileAbsent)
		}
		if err != nil {
			return Listing[models.BloodRequest]{}, err
		}
		groups = compatibility.RecipientsOf(donor.BloodGroup)
		if groups == nil {
			groups = []models.BloodGroup{}
		}
	}
	rows, total, err := s.requests.ListActive(ctx, groups, p.Bounds())
	if err != nil {
		return Listing[models.BloodRequest]{}, err
	}
	return newListing(rows, total, p), nil
}

// Get loads one request with its parties.
func (s *RequestService) Get(ctx context.Context, id uint) (*models.BloodRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// Update applies field changes after re-validating them.
func (s *RequestService) Update(ctx context.Context, id uint, in UpdateRequestInput) (*models.BloodRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, id, in.fields()); err != nil {
		return nil, err
	}
	if in.Status != nil {
		observability.RequestTransitions.WithLabelValues(string(*in.Status)).Inc()
	}
	return s.requests.GetByID(ctx, id)
}

// Delete removes a request.
func (s *RequestService) Delete(ctx context.Context, id uint) error {
	return s.requests.Delete(ctx, id)
}

// Cancel moves a pending or accepted request to cancelled and tells the
// assigned donor, if any.
func (s *RequestService) Cancel(ctx context.Context, id uint, by models.UserKind) (req *models.BloodRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RequestService", "Cancel",
		attribute.Int("request.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.requests.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reject("cancel", "not_active", models.NewInvariantError(MsgNotCancellable))
	}
	// A cancelled row no longer changes, so this read sees any donor an
	// accept assigned before the cancel committed.
	req, err = s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	observability.RequestTransitions.WithLabelValues(string(models.RequestCancelled)).Inc()

	if req.DonorID != nil {
		cancelled, donorID := *req, *req.DonorID
		enqueue(s.notify, notifications.EventRequestCancelled, func(ctx context.Context) error {
			return notifyOne(ctx, s.notify, s.recipients, models.KindDonor, donorID,
				notifications.RequestCancelledMessage(&cancelled, by))
		})
	}
	return req, nil
}

// Accept assigns donorID to a pending request. The donor must be outside the
// cooldown window, and only the first of concurrent accepts succeeds.
func (s *RequestService) Accept(ctx context.Context, requestID, donorID uint) (req *models.BloodRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RequestService", "Accept",
		attribute.Int("request.id", int(requestID)), attribute.Int("donor.id", int(donorID)))
	defer func() { observability.EndSpan(span, err) }()

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, reject("accept", "not_pending", models.NewInvariantError(MsgNotPending))
	}
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.EligibleAt(s.now()) {
		return nil, reject("accept", "ineligible",
			models.NewInvariantError(IneligibleMessage(donor.NextEligibleDate())))
	}

	ok, err := s.requests.Accept(ctx, requestID, donorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reject("accept", "not_pending", models.NewInvariantError(MsgNotPending))
	}
	observability.RequestTransitions.WithLabelValues(string(models.RequestAccepted)).Inc()

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	accepted, volunteer := *req, *donor
	enqueue(s.notify, notifications.EventRequestAccepted, func(ctx context.Context) error {
		return notifyOne(ctx, s.notify, s.recipients, models.KindRequester, accepted.RequesterID,
			notifications.RequestAcceptedMessage(&accepted, &volunteer))
	})
	return req, nil
}

// Fulfill completes an accepted request for its assigned donor and records
// the donation on the donor in the same transaction.
func (s *RequestService) Fulfill(ctx context.Context, requestID, donorID uint) (req *models.BloodRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RequestService", "Fulfill",
		attribute.Int("request.id", int(requestID)), attribute.Int("donor.id", int(donorID)))
	defer func() { observability.EndSpan(span, err) }()

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestAccepted {
		return nil, reject("fulfill", "not_accepted", models.NewInvariantError(MsgNotAccepted))
	}
	if req.DonorID == nil || *req.DonorID != donorID {
		return nil, reject("fulfill", "wrong_donor", models.NewForbiddenError(MsgNotYourRequest))
	}

	ok, err := s.requests.Fulfill(ctx, requestID, donorID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reject("fulfill", "not_accepted", models.NewInvariantError(MsgNotAccepted))
	}
	observability.RequestTransitions.WithLabelValues(string(models.RequestFulfilled)).Inc()

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	done := *req
	enqueue(s.notify, notifications.EventRequestFulfilled, func(ctx context.Context) error {
		return notifyOne(ctx, s.notify, s.recipients, models.KindRequester, done.RequesterID,
			notifications.RequestFulfilledMessage(&done))
	})
	enqueue(s.notify, notifications.EventDonationComplete, func(ctx context.Context) error {
		return notifyOne(ctx, s.notify, s.recipients, models.KindDonor, donorID,
			notifications.ThankYouMessage(&done))
	})
	return req, nil
}

// ListByRequester returns every request the requester raised, newest first.
func (s *RequestService) ListByRequester(ctx context.Context, requesterID uint) ([]models.BloodRequest, error) {
	return s.requests.ListByRequester(ctx, requesterID)
}

// DonorHistory returns the requests the donor fulfilled, latest first.
func (s *RequestService) DonorHistory(ctx context.Context, donorID uint) ([]models.BloodRequest, error) {
	return s.requests.ListDonorHistory(ctx, donorID)
}
