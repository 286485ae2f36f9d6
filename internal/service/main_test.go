package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"jeevandhara/internal/cache"
	"jeevandhara/internal/database"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB returns a migrated in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	return db
}

// newTestCache returns a cache over miniredis.
func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb), mr
}

type delivery struct {
	msg     notifications.Message
	targets []notifications.Target
}

// recordingNotifier runs tasks inline and keeps every delivery.
type recordingNotifier struct {
	mu         sync.Mutex
	tasks      []string
	deliveries []delivery
	enqueueFn  func(name string) bool
	taskErrs   []error
}

func (n *recordingNotifier) Enqueue(name string, fn func(ctx context.Context) error) bool {
	n.mu.Lock()
	n.tasks = append(n.tasks, name)
	accept := n.enqueueFn == nil || n.enqueueFn(name)
	n.mu.Unlock()
	if !accept {
		return false
	}
	if err := fn(context.Background()); err != nil {
		n.mu.Lock()
		n.taskErrs = append(n.taskErrs, err)
		n.mu.Unlock()
	}
	return true
}

func (n *recordingNotifier) Deliver(_ context.Context, msg notifications.Message, targets ...notifications.Target) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{msg: msg, targets: targets})
	return nil
}

// byEvent returns the deliveries for event.
func (n *recordingNotifier) byEvent(event string) []delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []delivery
	for _, d := range n.deliveries {
		if d.msg.Event() == event {
			out = append(out, d)
		}
	}
	return out
}

// fixture wires every service over one SQLite database.
type fixture struct {
	db         *gorm.DB
	donors     repository.DonorRepository
	requesters repository.RequesterRepository
	hospitals  repository.HospitalRepository
	banks      repository.BloodBankRepository
	requests   repository.BloodRequestRepository
	hospReqs   repository.HospitalRequestRepository
	ledger     repository.LedgerRepository
	directory  *Directory
	notify     *recordingNotifier
	cache      *cache.Cache
	mr         *miniredis.Miniredis

	lifecycle    *RequestService
	inventory    *LedgerService
	review       *VerificationService
	facilities   *FacilityService
	hospitalDesk *HospitalRequestService
	people       *PeopleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	c, mr := newTestCache(t)
	f := &fixture{
		db:         db,
		donors:     repository.NewDonorRepository(db),
		requesters: repository.NewRequesterRepository(db),
		hospitals:  repository.NewHospitalRepository(db),
		banks:      repository.NewBloodBankRepository(db),
		requests:   repository.NewBloodRequestRepository(db),
		hospReqs:   repository.NewHospitalRequestRepository(db),
		ledger:     repository.NewLedgerRepository(db),
		notify:     &recordingNotifier{},
		cache:      c,
		mr:         mr,
	}
	f.directory = NewDirectory(
		NewRequesterStore(f.requesters),
		NewDonorStore(f.donors),
		NewHospitalStore(f.hospitals),
		NewBloodBankStore(f.banks),
	)
	f.lifecycle = NewRequestService(f.requests, f.donors, f.requesters, f.directory, f.notify)
	f.inventory = NewLedgerService(f.ledger, f.banks, f.hospitals, f.donors, f.directory, f.notify, c, 0)
	f.review = NewVerificationService(f.hospitals, f.banks, c)
	f.facilities = NewFacilityService(f.hospitals, f.banks, f.ledger, f.hospReqs, c)
	f.hospitalDesk = NewHospitalRequestService(f.hospReqs, f.hospitals, f.donors, f.directory, f.notify)
	f.people = NewPeopleService(f.donors, f.requesters, f.requests, f.directory, c)
	return f
}

func (f *fixture) donor(t *testing.T, name string, group models.BloodGroup, token string) *models.Donor {
	t.Helper()
	d := &models.Donor{FullName: name, Email: name + "@donors.test", Phone: "98000", BloodGroup: group, IsAvailable: true, FCMToken: token}
	require.NoError(t, f.donors.Create(context.Background(), d))
	return d
}

func (f *fixture) requester(t *testing.T, name string) *models.Requester {
	t.Helper()
	r := &models.Requester{FullName: name, Email: name + "@requesters.test"}
	require.NoError(t, f.requesters.Create(context.Background(), r))
	return r
}

func (f *fixture) hospital(t *testing.T, name string) *models.Hospital {
	t.Helper()
	h := &models.Hospital{HospitalName: name, Email: name + "@hospitals.test", HospitalRegistrationID: "REG-" + name, City: "Pune"}
	require.NoError(t, f.hospitals.Create(context.Background(), h))
	return h
}

func (f *fixture) bank(t *testing.T, name string) *models.BloodBank {
	t.Helper()
	b := &models.BloodBank{BloodBankName: name, Email: name + "@banks.test", RegistrationNumber: "BB-" + name}
	require.NoError(t, f.banks.Create(context.Background(), b))
	return b
}

func validRequest(requesterID uint, group models.BloodGroup) CreateRequestInput {
	return CreateRequestInput{
		RequesterID:   requesterID,
		PatientName:   "Patient",
		PatientPhone:  "9999",
		BloodGroup:    group,
		HospitalName:  "City Hospital",
		Location:      "Pune",
		ContactNumber: "9999",
		Units:         2,
	}
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "want %s, got %v", code, err)
	if message != "" {
		assert.Contains(t, err.Error(), message)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
