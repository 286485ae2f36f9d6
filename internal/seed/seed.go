// Package seed loads baseline facilities and optional demo data into the
// database. Every step is safe to repeat.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"jeevandhara/internal/models"
	"jeevandhara/internal/repository"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed facilities.yaml
var facilitiesYAML []byte

// Starter stock bounds for a newly seeded bank: units are drawn from
// [MinStarterUnits, MinStarterUnits+starterSpread).
const (
	MinStarterUnits = 10
	starterSpread   = 30
	stockWorkers    = 4
)

// Options configures a Seeder.
type Options struct {
	// Source overrides the random source used for starter stock and demo
	// data. Tests pass a fixed seed.
	Source rand.Source
	// Now overrides the clock used for expiry dates.
	Now func() time.Time
}

// Report counts what a run created.
type Report struct {
	HospitalsAdded   int
	BloodBanksAdded  int
	StockRows        int
	DonorsAdded      int
	RequestersAdded  int
	DuplicateSkipped int
}

// Seeder writes seed data through the repositories.
type Seeder struct {
	hospitals  repository.HospitalRepository
	banks      repository.BloodBankRepository
	ledger     repository.LedgerRepository
	donors     repository.DonorRepository
	requesters repository.RequesterRepository

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSeeder builds a Seeder over db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	src := opts.Source
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Seeder{
		hospitals:  repository.NewHospitalRepository(db),
		banks:      repository.NewBloodBankRepository(db),
		ledger:     repository.NewLedgerRepository(db),
		donors:     repository.NewDonorRepository(db),
		requesters: repository.NewRequesterRepository(db),
		rng:        rand.New(src),
		now:        now,
	}
}

// intN is rng.IntN guarded for use from the stock workers.
func (s *Seeder) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// FacilityFile is the shape of facilities.yaml.
type FacilityFile struct {
	Hospitals  []HospitalRecord  `yaml:"hospitals"`
	BloodBanks []BloodBankRecord `yaml:"bloodBanks"`
}

// HospitalRecord is one seeded hospital.
type HospitalRecord struct {
	HospitalName           string   `yaml:"hospitalName"`
	Email                  string   `yaml:"email"`
	PhoneNumber            string   `yaml:"phoneNumber"`
	HospitalRegistrationID string   `yaml:"hospitalRegistrationId"`
	Address                string   `yaml:"address"`
	City                   string   `yaml:"city"`
	District               string   `yaml:"district"`
	ContactPerson          string   `yaml:"contactPerson"`
	BloodBankFacility      bool     `yaml:"bloodBankFacility"`
	EmergencyService24x7   bool     `yaml:"emergencyService24x7"`
	HospitalType           string   `yaml:"hospitalType"`
	MedicalLicenseNumber   string   `yaml:"medicalLicenseNumber"`
	Latitude               *float64 `yaml:"latitude"`
	Longitude              *float64 `yaml:"longitude"`
	Verified               bool     `yaml:"verified"`
}

// BloodBankRecord is one seeded blood bank.
type BloodBankRecord struct {
	BloodBankName        string `yaml:"bloodBankName"`
	Email                string `yaml:"email"`
	PhoneNumber          string `yaml:"phoneNumber"`
	RegistrationNumber   string `yaml:"registrationNumber"`
	FullAddress          string `yaml:"fullAddress"`
	City                 string `yaml:"city"`
	District             string `yaml:"district"`
	ContactPerson        string `yaml:"contactPerson"`
	Designation          string `yaml:"designation"`
	StorageCapacity      int    `yaml:"storageCapacity"`
	EmergencyService24x7 bool   `yaml:"emergencyService24x7"`
	ComponentSeparation  bool   `yaml:"componentSeparation"`
	ApheresisService     bool   `yaml:"apheresisService"`
	Verified             bool   `yaml:"verified"`
}

func verification(verified bool) models.VerificationStatus {
	if verified {
		return models.VerificationVerified
	}
	return models.VerificationPending
}

func (r HospitalRecord) model() *models.Hospital {
	return &models.Hospital{
		HospitalName:           r.HospitalName,
		Email:                  r.Email,
		PhoneNumber:            r.PhoneNumber,
		HospitalRegistrationID: r.HospitalRegistrationID,
		Address:                r.Address,
		City:                   r.City,
		District:               r.District,
		ContactPerson:          r.ContactPerson,
		BloodBankFacility:      r.BloodBankFacility,
		EmergencyService24x7:   r.EmergencyService24x7,
		HospitalType:           models.HospitalType(r.HospitalType),
		MedicalLicenseNumber:   r.MedicalLicenseNumber,
		Latitude:               r.Latitude,
		Longitude:              r.Longitude,
		IsVerified:             r.Verified,
		VerificationStatus:     verification(r.Verified),
	}
}

func (r BloodBankRecord) model() *models.BloodBank {
	return &models.BloodBank{
		BloodBankName:        r.BloodBankName,
		Email:                r.Email,
		PhoneNumber:          r.PhoneNumber,
		RegistrationNumber:   r.RegistrationNumber,
		FullAddress:          r.FullAddress,
		City:                 r.City,
		District:             r.District,
		ContactPerson:        r.ContactPerson,
		Designation:          r.Designation,
		StorageCapacity:      r.StorageCapacity,
		EmergencyService24x7: r.EmergencyService24x7,
		ComponentSeparation:  r.ComponentSeparation,
		ApheresisService:     r.ApheresisService,
		IsVerified:           r.Verified,
		VerificationStatus:   verification(r.Verified),
	}
}

// LoadFacilities parses a facility file.
func LoadFacilities(data []byte) (*FacilityFile, error) {
	var f FacilityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse facility file: %w", err)
	}
	return &f, nil
}

// DefaultFacilities returns the embedded baseline facilities.
func DefaultFacilities() (*FacilityFile, error) {
	return LoadFacilities(facilitiesYAML)
}

// Facilities seeds the embedded baseline facilities.
func (s *Seeder) Facilities(ctx context.Context) (*Report, error) {
	f, err := DefaultFacilities()
	if err != nil {
		return nil, err
	}
	return s.SeedFacilities(ctx, f)
}

// SeedFacilities creates every hospital and bank in f that is not yet
// registered, then gives each new bank one starter stock row per group.
// Existing facilities and their stock are left alone.
func (s *Seeder) SeedFacilities(ctx context.Context, f *FacilityFile) (*Report, error) {
	report := &Report{}

	for _, rec := range f.Hospitals {
		exists, err := s.hospitals.ExistsByEmailOrRegistration(ctx, rec.Email, rec.HospitalRegistrationID)
		if err != nil {
			return report, fmt.Errorf("check hospital %s: %w", rec.HospitalRegistrationID, err)
		}
		if exists {
			continue
		}
		if err := s.hospitals.Create(ctx, rec.model()); err != nil {
			return report, fmt.Errorf("seed hospital %s: %w", rec.HospitalRegistrationID, err)
		}
		report.HospitalsAdded++
		log.Printf("seed: added hospital %s", rec.HospitalName)
	}

	var added []uint
	for _, rec := range f.BloodBanks {
		exists, err := s.banks.ExistsByEmailOrRegistration(ctx, rec.Email, rec.RegistrationNumber)
		if err != nil {
			return report, fmt.Errorf("check blood bank %s: %w", rec.RegistrationNumber, err)
		}
		if exists {
			continue
		}
		bank := rec.model()
		if err := s.banks.Create(ctx, bank); err != nil {
			return report, fmt.Errorf("seed blood bank %s: %w", rec.RegistrationNumber, err)
		}
		added = append(added, bank.ID)
		report.BloodBanksAdded++
		log.Printf("seed: added blood bank %s", rec.BloodBankName)
	}

	rows, err := s.starterStock(ctx, added)
	report.StockRows = rows
	if err != nil {
		return report, err
	}
	return report, nil
}

// starterStock writes the per-group starter rows for each bank in ids.
func (s *Seeder) starterStock(ctx context.Context, ids []uint) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stockWorkers)

	expiry := s.now().Add(models.StockShelfLife)
	for _, id := range ids {
		rows := make([]models.BloodStock, 0, len(models.BloodGroups))
		for _, group := range models.BloodGroups {
			rows = append(rows, models.BloodStock{
				BloodBankID: &id,
				BloodGroup:  group,
				Units:       MinStarterUnits + s.intN(starterSpread),
				ExpiryDate:  expiry,
			})
		}
		g.Go(func() error {
			if err := s.ledger.SeedStock(ctx, rows); err != nil {
				return fmt.Errorf("seed stock for bank %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ids) * len(models.BloodGroups), nil
}
