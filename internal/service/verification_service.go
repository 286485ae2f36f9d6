package service

import (
	"context"
	"strings"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/models"
	"jeevandhara/internal/observability"
	"jeevandhara/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultRejectionReason is stored when a rejection carries no reason.
const DefaultRejectionReason = "Not specified"

// VerificationCounts tallies facilities of one kind by status.
type VerificationCounts struct {
	Pending  int64 `json:"pending"`
	Verified int64 `json:"verified"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// VerificationStats is the admin dashboard summary.
type VerificationStats struct {
	Hospitals  VerificationCounts `json:"hospitals"`
	BloodBanks VerificationCounts `json:"bloodBanks"`
}

// VerificationService moves hospitals and blood banks through admin review.
type VerificationService struct {
	hospitals repository.HospitalRepository
	banks     repository.BloodBankRepository
	cache     *cache.Cache
}

func NewVerificationService(hospitals repository.HospitalRepository, banks repository.BloodBankRepository, c *cache.Cache) *VerificationService {
	return &VerificationService{hospitals: hospitals, banks: banks, cache: c}
}

func reviewReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason == "" {
		return DefaultRejectionReason
	}
	return reason
}

// ApproveHospital marks a hospital verified.
func (s *VerificationService) ApproveHospital(ctx context.Context, id uint) (*models.Hospital, error) {
	return s.reviewHospital(ctx, id, models.VerificationVerified, "")
}

// RejectHospital marks a hospital rejected with reason.
func (s *VerificationService) RejectHospital(ctx context.Context, id uint, reason string) (*models.Hospital, error) {
	return s.reviewHospital(ctx, id, models.VerificationRejected, reviewReason(reason))
}

// ApproveBloodBank marks a blood bank verified.
func (s *VerificationService) ApproveBloodBank(ctx context.Context, id uint) (*models.BloodBank, error) {
	return s.reviewBloodBank(ctx, id, models.VerificationVerified, "")
}

// RejectBloodBank marks a blood bank rejected with reason.
func (s *VerificationService) RejectBloodBank(ctx context.Context, id uint, reason string) (*models.BloodBank, error) {
	return s.reviewBloodBank(ctx, id, models.VerificationRejected, reviewReason(reason))
}

func (s *VerificationService) reviewHospital(ctx context.Context, id uint, status models.VerificationStatus, reason string) (h *models.Hospital, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "VerificationService", "ReviewHospital",
		attribute.Int("hospital.id", int(id)), attribute.String("status", string(status)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.hospitals.SetVerification(ctx, id, status, reason); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyHospitals)
	return s.hospitals.GetByID(ctx, id)
}

func (s *VerificationService) reviewBloodBank(ctx context.Context, id uint, status models.VerificationStatus, reason string) (b *models.BloodBank, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "VerificationService", "ReviewBloodBank",
		attribute.Int("blood_bank.id", int(id)), attribute.String("status", string(status)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.banks.SetVerification(ctx, id, status, reason); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyBloodBanks)
	return s.banks.GetByID(ctx, id)
}

// Hospitals lists hospitals in status, newest first.
func (s *VerificationService) Hospitals(ctx context.Context, status models.VerificationStatus) ([]models.Hospital, error) {
	return s.hospitals.ListByVerification(ctx, status)
}

// BloodBanks lists blood banks in status, newest first.
func (s *VerificationService) BloodBanks(ctx context.Context, status models.VerificationStatus) ([]models.BloodBank, error) {
	return s.banks.ListByVerification(ctx, status)
}

type countFunc func(ctx context.Context, status models.VerificationStatus) (int64, error)

// Stats counts both facility kinds per status concurrently.
func (s *VerificationService) Stats(ctx context.Context) (*VerificationStats, error) {
	var stats VerificationStats
	g, gctx := errgroup.WithContext(ctx)

	tally := func(count countFunc, out *VerificationCounts) {
		slots := []struct {
			status models.VerificationStatus
			dst    *int64
		}{
			{models.VerificationPending, &out.Pending},
			{models.VerificationVerified, &out.Verified},
			{models.VerificationRejected, &out.Rejected},
			{"", &out.Total},
		}
		for _, slot := range slots {
			g.Go(func() error {
				n, err := count(gctx, slot.status)
				if err != nil {
					return err
				}
				*slot.dst = n
				return nil
			})
		}
	}
	tally(s.hospitals.CountByVerification, &stats.Hospitals)
	tally(s.banks.CountByVerification, &stats.BloodBanks)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
