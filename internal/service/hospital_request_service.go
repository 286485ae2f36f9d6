package service

import (
	"context"

	"jeevandhara/internal/compatibility"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/observability"
	"jeevandhara/internal/repository"
	"jeevandhara/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// HospitalRequestInput is a hospital's request for units.
type HospitalRequestInput struct {
	PatientName        string               `json:"patientName" validate:"required,max=120"`
	BloodGroup         models.BloodGroup    `json:"bloodGroup" validate:"required,bloodgroup"`
	UnitsRequired      int                  `json:"unitsRequired" validate:"required,gte=1"`
	Urgency            models.Urgency       `json:"urgency" validate:"omitempty,oneof=low medium high critical"`
	RequestedFrom      models.RequestSource `json:"requestedFrom" validate:"required,oneof=blood_bank donor"`
	NotifyViaEmergency bool                 `json:"notifyViaEmergency"`
	Notes              string               `json:"notes"`
}

// HospitalRequestUpdate edits a hospital request. Nil fields are untouched.
type HospitalRequestUpdate struct {
	PatientName        *string                       `json:"patientName" validate:"omitempty,min=1,max=120"`
	BloodGroup         *models.BloodGroup            `json:"bloodGroup" validate:"omitempty,bloodgroup"`
	UnitsRequired      *int                          `json:"unitsRequired" validate:"omitempty,gte=1"`
	Urgency            *models.Urgency               `json:"urgency" validate:"omitempty,oneof=low medium high critical"`
	RequestedFrom      *models.RequestSource         `json:"requestedFrom" validate:"omitempty,oneof=blood_bank donor"`
	Status             *models.HospitalRequestStatus `json:"status" validate:"omitempty,oneof=pending approved fulfilled cancelled"`
	DeliveryStatus     *models.DeliveryStatus        `json:"deliveryStatus" validate:"omitempty,oneof=not_started in_transit delivered"`
	NotifyViaEmergency *bool                         `json:"notifyViaEmergency"`
	Notes              *string                       `json:"notes"`
}

func (u HospitalRequestUpdate) fields() map[string]any {
	out := map[string]any{}
	if u.PatientName != nil {
		out["patient_name"] = *u.PatientName
	}
	if u.BloodGroup != nil {
		out["blood_group"] = *u.BloodGroup
	}
	if u.UnitsRequired != nil {
		out["units_required"] = *u.UnitsRequired
	}
	if u.Urgency != nil {
		out["urgency"] = *u.Urgency
	}
	if u.RequestedFrom != nil {
		out["requested_from"] = *u.RequestedFrom
	}
	if u.Status != nil {
		out["status"] = *u.Status
	}
	if u.DeliveryStatus != nil {
		out["delivery_status"] = *u.DeliveryStatus
	}
	if u.NotifyViaEmergency != nil {
		out["notify_via_emergency"] = *u.NotifyViaEmergency
	}
	if u.Notes != nil {
		out["notes"] = *u.Notes
	}
	return out
}

// HospitalRequestService is the hospital request desk.
type HospitalRequestService struct {
	requests   repository.HospitalRequestRepository
	hospitals  repository.HospitalRepository
	donors     repository.DonorRepository
	recipients Recipients
	notify     Notifier
}

func NewHospitalRequestService(
	requests repository.HospitalRequestRepository,
	hospitals repository.HospitalRepository,
	donors repository.DonorRepository,
	recipients Recipients,
	notify Notifier,
) *HospitalRequestService {
	return &HospitalRequestService{
		requests:   requests,
		hospitals:  hospitals,
		donors:     donors,
		recipients: recipients,
		notify:     notify,
	}
}

// Create files a request for hospitalID. Requests addressed to donors page
// every compatible available donor.
func (s *HospitalRequestService) Create(ctx context.Context, hospitalID uint, in HospitalRequestInput) (req *models.HospitalBloodRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "HospitalRequestService", "Create",
		attribute.Int("hospital.id", int(hospitalID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	hospital, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	req = &models.HospitalBloodRequest{
		HospitalID:         hospitalID,
		PatientName:        in.PatientName,
		BloodGroup:         in.BloodGroup,
		UnitsRequired:      in.UnitsRequired,
		Urgency:            urgency,
		RequestedFrom:      in.RequestedFrom,
		Status:             models.HospitalRequestPending,
		DeliveryStatus:     models.DeliveryNotStarted,
		NotifyViaEmergency: in.NotifyViaEmergency,
		Notes:              in.Notes,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	created := *req
	name := hospital.HospitalName
	if created.RequestedFrom == models.SourceDonor {
		enqueue(s.notify, notifications.EventNewRequest, func(ctx context.Context) error {
			targets, err := s.donors.CompatibleTargets(ctx, compatibility.DonorsFor(created.BloodGroup))
			if err != nil {
				return err
			}
			return s.notify.Deliver(ctx, notifications.HospitalNeedMessage(&created, name), toTargets(models.KindDonor, targets)...)
		})
	}
	if created.NotifyViaEmergency {
		where := hospital.City
		if where == "" {
			where = name
		}
		enqueue(s.notify, notifications.EventEmergency, func(ctx context.Context) error {
			targets, err := emergencyTargets(ctx, s.recipients)
			if err != nil {
				return err
			}
			msg := notifications.EmergencyMessage(created.ID, created.BloodGroup, created.UnitsRequired, where)
			return s.notify.Deliver(ctx, msg, targets...)
		})
	}
	return req, nil
}

// ListByHospital returns a hospital's requests, newest first.
func (s *HospitalRequestService) ListByHospital(ctx context.Context, hospitalID uint) ([]models.HospitalBloodRequest, error) {
	return s.requests.ListByHospital(ctx, hospitalID)
}

// Update edits a request after re-validating its enums.
func (s *HospitalRequestService) Update(ctx context.Context, id uint, in HospitalRequestUpdate) (*models.HospitalBloodRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, id, in.fields()); err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, id)
}

// UpdateDeliveryStatus moves a request's delivery along.
func (s *HospitalRequestService) UpdateDeliveryStatus(ctx context.Context, id uint, status models.DeliveryStatus) (*models.HospitalBloodRequest, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("Invalid delivery status: " + string(status))
	}
	if err := s.requests.Update(ctx, id, map[string]any{"delivery_status": status}); err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, id)
}
