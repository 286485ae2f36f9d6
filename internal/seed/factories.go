package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jeevandhara/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds demo people. Entities are not persisted.
type Factory struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory returns a Factory drawing from seed. The same seed yields the
// same people.
func NewFactory(seed int64, now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{faker: gofakeit.New(seed), now: now}
}

func (f *Factory) bloodGroup() models.BloodGroup {
	return models.BloodGroups[f.faker.Number(0, len(models.BloodGroups)-1)]
}

func (f *Factory) email(kind string, n int) string {
	user := strings.ToLower(f.faker.Username())
	return fmt.Sprintf("%s.%s.%d@demo.jeevandhara.test", kind, user, n)
}

// Donor builds the n-th demo donor. Roughly a third have donated within the
// last six months, so some are still inside the cooldown window.
func (f *Factory) Donor(n int) *models.Donor {
	addr := f.faker.Address()
	d := &models.Donor{
		FullName:           f.faker.Name(),
		Email:              f.email("donor", n),
		Phone:              f.faker.Phone(),
		Location:           addr.City,
		Latitude:           &addr.Latitude,
		Longitude:          &addr.Longitude,
		Age:                f.faker.Number(18, 60),
		BloodGroup:         f.bloodGroup(),
		IsAvailable:        f.faker.Bool(),
		DonationCapability: models.CapabilityYes,
	}
	if f.faker.Number(1, 3) == 1 {
		last := f.now().AddDate(0, 0, -f.faker.Number(1, 180))
		d.LastDonationDate = &last
		d.TotalDonations = f.faker.Number(1, 12)
	}
	return d
}

// Requester builds the n-th demo requester.
func (f *Factory) Requester(n int) *models.Requester {
	addr := f.faker.Address()
	return &models.Requester{
		FullName:         f.faker.Name(),
		Email:            f.email("requester", n),
		Phone:            f.faker.Phone(),
		HospitalName:     f.faker.Company() + " Hospital",
		HospitalLocation: addr.City,
		HospitalPhone:    f.faker.Phone(),
		Location:         addr.City,
		FullAddress:      addr.Address,
		Age:              f.faker.Number(18, 80),
		Gender:           f.faker.RandomString([]string{"male", "female", "other"}),
		BloodGroup:       f.bloodGroup(),
	}
}

// Demo creates n donors and n requesters. Rows that collide with an
// existing email are skipped and counted.
func (s *Seeder) Demo(ctx context.Context, f *Factory, n int) (*Report, error) {
	report := &Report{}
	for i := range n {
		if err := s.donors.Create(ctx, f.Donor(i)); err != nil {
			if !models.HasCode(err, models.CodeValidation) {
				return report, fmt.Errorf("seed demo donor: %w", err)
			}
			report.DuplicateSkipped++
		} else {
			report.DonorsAdded++
		}
		if err := s.requesters.Create(ctx, f.Requester(i)); err != nil {
			if !models.HasCode(err, models.CodeValidation) {
				return report, fmt.Errorf("seed demo requester: %w", err)
			}
			report.DuplicateSkipped++
		} else {
			report.RequestersAdded++
		}
	}
	log.Printf("seed: %d demo donors, %d demo requesters", report.DonorsAdded, report.RequestersAdded)
	return report, nil
}
