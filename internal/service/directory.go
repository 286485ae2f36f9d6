package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"jeevandhara/internal/identity"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"
	"jeevandhara/internal/repository"

	"gorm.io/gorm/schema"
)

// Directory messages.
const (
	MsgUserExists       = "User already exists"
	MsgInvalidUserType  = "Invalid user type"
	MsgUserNotFound     = "User not found"
	MsgProfileMissing   = "User not found in database. Please complete registration."
	MsgEmailRequired    = "Token does not carry an email address"
	unknownDisplayName  = "Someone"
	fallbackPersonLabel = "User"
)

// protectedProfileFields are never written through a profile update.
var protectedProfileFields = map[string]struct{}{
	"id": {}, "password": {}, "email": {}, "externalUid": {}, "userType": {},
	"isVerified": {}, "verificationStatus": {}, "rejectionReason": {},
	"totalDonations": {}, "fcmToken": {}, "createdAt": {}, "updatedAt": {},
}

// Account is a resolved profile of any kind.
type Account struct {
	Kind    models.UserKind
	ID      uint
	Profile any
}

// View renders the profile with its userType, the shape every account
// endpoint returns.
func (a *Account) View() (map[string]any, error) {
	raw, err := json.Marshal(a.Profile)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, models.NewInternalError(err)
	}
	out["userType"] = a.Kind
	return out, nil
}

// KindStore is what the directory needs from one profile table.
type KindStore interface {
	Kind() models.UserKind
	FindByID(ctx context.Context, id uint) (*Account, error)
	// FindByIdentity returns nil, nil when nothing matches.
	FindByIdentity(ctx context.Context, uid, email string) (*Account, error)
	DisplayName(a *Account) string
	Create(ctx context.Context, email, uid string, payload map[string]any) (*Account, error)
	UpdateProfile(ctx context.Context, id uint, fields map[string]any) (*Account, error)
	LinkExternalUID(ctx context.Context, id uint, uid string) error
	SetFCMToken(ctx context.Context, id uint, token string) error
	ClearFCMToken(ctx context.Context, token string) (int64, error)
	Targets(ctx context.Context, ids ...uint) ([]notifications.Target, error)
	// Linked reports whether the profile already carries an external uid.
	Linked(a *Account) bool
}

type kindStore[T any] struct {
	kind     models.UserKind
	repo     repository.AccountRepository[T]
	idOf     func(*T) uint
	uidOf    func(*T) *string
	nameOf   func(*T) string
	prepare  func(p *T, email, uid string) error
	columns  map[string]*schema.Field
	fallback string
}

var schemaCache sync.Map

// patchColumns maps json names to gorm fields for T.
func patchColumns[T any]() map[string]*schema.Field {
	s, err := schema.Parse(new(T), &schemaCache, schema.NamingStrategy{})
	if err != nil {
		panic(err)
	}
	out := make(map[string]*schema.Field, len(s.Fields))
	for _, f := range s.Fields {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if f.DBName == "" || name == "" || name == "-" {
			continue
		}
		if _, blocked := protectedProfileFields[name]; blocked {
			continue
		}
		out[name] = f
	}
	return out
}

func (s *kindStore[T]) Kind() models.UserKind { return s.kind }

func (s *kindStore[T]) wrap(p *T) *Account {
	return &Account{Kind: s.kind, ID: s.idOf(p), Profile: p}
}

func (s *kindStore[T]) FindByID(ctx context.Context, id uint) (*Account, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.wrap(p), nil
}

func (s *kindStore[T]) FindByIdentity(ctx context.Context, uid, email string) (*Account, error) {
	p, err := s.repo.FindByIdentity(ctx, uid, email)
	if err != nil || p == nil {
		return nil, err
	}
	return s.wrap(p), nil
}

func (s *kindStore[T]) DisplayName(a *Account) string {
	if a == nil {
		return unknownDisplayName
	}
	p, ok := a.Profile.(*T)
	if !ok || p == nil {
		return unknownDisplayName
	}
	if name := s.nameOf(p); name != "" {
		return name
	}
	return s.fallback
}

// decode overlays payload onto p using the profile's json names.
func decode[T any](payload map[string]any, p *T) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.NewValidationError("Invalid profile payload")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return models.NewValidationError("Invalid profile payload: " + err.Error())
	}
	return nil
}

func (s *kindStore[T]) Create(ctx context.Context, email, uid string, payload map[string]any) (*Account, error) {
	clean := make(map[string]any, len(payload))
	for k, v := range payload {
		if _, blocked := protectedProfileFields[k]; blocked {
			continue
		}
		clean[k] = v
	}
	p := new(T)
	if err := decode(clean, p); err != nil {
		return nil, err
	}
	if err := s.prepare(p, strings.ToLower(strings.TrimSpace(email)), uid); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.wrap(p), nil
}

func (s *kindStore[T]) UpdateProfile(ctx context.Context, id uint, fields map[string]any) (*Account, error) {
	overlay := new(T)
	if err := decode(fields, overlay); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(overlay).Elem()
	updates := make(map[string]any, len(fields))
	for name := range fields {
		f, ok := s.columns[name]
		if !ok {
			continue
		}
		v, _ := f.ValueOf(ctx, rv)
		updates[f.DBName] = v
	}
	if g, ok := updates["blood_group"]; ok {
		if bg, _ := g.(models.BloodGroup); bg != "" && !bg.Valid() {
			return nil, models.NewValidationError("Invalid blood group: " + string(bg))
		}
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *kindStore[T]) Linked(a *Account) bool {
	p, ok := a.Profile.(*T)
	if !ok || p == nil {
		return false
	}
	uid := s.uidOf(p)
	return uid != nil && *uid != ""
}

func (s *kindStore[T]) LinkExternalUID(ctx context.Context, id uint, uid string) error {
	return s.repo.SetExternalUID(ctx, id, uid)
}

func (s *kindStore[T]) SetFCMToken(ctx context.Context, id uint, token string) error {
	return s.repo.SetFCMToken(ctx, id, token)
}

func (s *kindStore[T]) ClearFCMToken(ctx context.Context, token string) (int64, error) {
	return s.repo.ClearFCMToken(ctx, token)
}

func (s *kindStore[T]) Targets(ctx context.Context, ids ...uint) ([]notifications.Target, error) {
	rows, err := s.repo.Targets(ctx, ids...)
	if err != nil {
		return nil, err
	}
	return toTargets(s.kind, rows), nil
}

func toTargets(kind models.UserKind, rows []repository.Target) []notifications.Target {
	out := make([]notifications.Target, 0, len(rows))
	for _, r := range rows {
		out = append(out, notifications.Target{
			Recipient: notifications.Recipient{Kind: kind, ID: r.ID},
			Token:     r.FCMToken,
		})
	}
	return out
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return models.NewValidationError(field + " is required")
	}
	return nil
}

func optionalUID(uid string) *string {
	if uid == "" {
		return nil
	}
	return &uid
}

// NewDonorStore adapts a donor repository.
func NewDonorStore(repo repository.AccountRepository[models.Donor]) KindStore {
	return &kindStore[models.Donor]{
		kind:   models.KindDonor,
		repo:   repo,
		idOf:   func(d *models.Donor) uint { return d.ID },
		uidOf:  func(d *models.Donor) *string { return d.ExternalUID },
		nameOf: func(d *models.Donor) string { return d.FullName },
		prepare: func(d *models.Donor, email, uid string) error {
			d.Email, d.ExternalUID, d.ID, d.TotalDonations = email, optionalUID(uid), 0, 0
			if err := required("fullName", d.FullName); err != nil {
				return err
			}
			if !d.BloodGroup.Valid() {
				return models.NewValidationError("Invalid blood group: " + string(d.BloodGroup))
			}
			return nil
		},
		columns:  patchColumns[models.Donor](),
		fallback: fallbackPersonLabel,
	}
}

// NewRequesterStore adapts a requester repository.
func NewRequesterStore(repo repository.AccountRepository[models.Requester]) KindStore {
	return &kindStore[models.Requester]{
		kind:   models.KindRequester,
		repo:   repo,
		idOf:   func(r *models.Requester) uint { return r.ID },
		uidOf:  func(r *models.Requester) *string { return r.ExternalUID },
		nameOf: func(r *models.Requester) string { return r.FullName },
		prepare: func(r *models.Requester, email, uid string) error {
			r.Email, r.ExternalUID, r.ID = email, optionalUID(uid), 0
			if r.BloodGroup != "" && !r.BloodGroup.Valid() {
				return models.NewValidationError("Invalid blood group: " + string(r.BloodGroup))
			}
			return required("fullName", r.FullName)
		},
		columns:  patchColumns[models.Requester](),
		fallback: fallbackPersonLabel,
	}
}

// NewHospitalStore adapts a hospital repository.
func NewHospitalStore(repo repository.AccountRepository[models.Hospital]) KindStore {
	return &kindStore[models.Hospital]{
		kind:   models.KindHospital,
		repo:   repo,
		idOf:   func(h *models.Hospital) uint { return h.ID },
		uidOf:  func(h *models.Hospital) *string { return h.ExternalUID },
		nameOf: func(h *models.Hospital) string { return h.HospitalName },
		prepare: func(h *models.Hospital, email, uid string) error {
			h.Email, h.ExternalUID, h.ID = email, optionalUID(uid), 0
			h.IsVerified, h.VerificationStatus = false, models.VerificationPending
			if err := required("hospitalName", h.HospitalName); err != nil {
				return err
			}
			return required("hospitalRegistrationId", h.HospitalRegistrationID)
		},
		columns:  patchColumns[models.Hospital](),
		fallback: "Hospital",
	}
}

// NewBloodBankStore adapts a blood bank repository.
func NewBloodBankStore(repo repository.AccountRepository[models.BloodBank]) KindStore {
	return &kindStore[models.BloodBank]{
		kind:   models.KindBloodBank,
		repo:   repo,
		idOf:   func(b *models.BloodBank) uint { return b.ID },
		uidOf:  func(b *models.BloodBank) *string { return b.ExternalUID },
		nameOf: func(b *models.BloodBank) string { return b.BloodBankName },
		prepare: func(b *models.BloodBank, email, uid string) error {
			b.Email, b.ExternalUID, b.ID = email, optionalUID(uid), 0
			b.IsVerified, b.VerificationStatus = false, models.VerificationPending
			if err := required("bloodBankName", b.BloodBankName); err != nil {
				return err
			}
			return required("registrationNumber", b.RegistrationNumber)
		},
		columns:  patchColumns[models.BloodBank](),
		fallback: "Blood Bank",
	}
}

// Directory resolves identities to profiles across every user kind.
type Directory struct {
	stores map[models.UserKind]KindStore
	order  []models.UserKind
}

// NewDirectory builds a directory over stores, resolved in the order given.
func NewDirectory(stores ...KindStore) *Directory {
	d := &Directory{stores: make(map[models.UserKind]KindStore, len(stores))}
	for _, s := range stores {
		d.stores[s.Kind()] = s
		d.order = append(d.order, s.Kind())
	}
	return d
}

// Store returns the store for kind, or a validation error for unknown kinds.
func (d *Directory) Store(kind models.UserKind) (KindStore, error) {
	s, ok := d.stores[kind]
	if !ok {
		return nil, models.NewValidationError(MsgInvalidUserType)
	}
	return s, nil
}

// lookup walks the stores in resolution order.
func (d *Directory) lookup(ctx context.Context, uid, email string) (KindStore, *Account, error) {
	for _, kind := range d.order {
		s := d.stores[kind]
		a, err := s.FindByIdentity(ctx, uid, email)
		if err != nil {
			return nil, nil, err
		}
		if a != nil {
			return s, a, nil
		}
	}
	return nil, nil, nil
}

// Resolve finds the profile behind a verified identity and backfills its
// external uid when missing.
func (d *Directory) Resolve(ctx context.Context, id *identity.Identity) (*Account, error) {
	s, a, err := d.lookup(ctx, id.UID, id.Email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.NewNotFoundError(MsgProfileMissing)
	}
	if !s.Linked(a) && id.UID != "" {
		if err := s.LinkExternalUID(ctx, a.ID, id.UID); err != nil {
			return nil, err
		}
		return s.FindByID(ctx, a.ID)
	}
	return a, nil
}

// CreateUser creates a profile of kind for a freshly signed-up identity.
func (d *Directory) CreateUser(ctx context.Context, id *identity.Identity, kind models.UserKind, payload map[string]any) (*Account, error) {
	s, err := d.Store(kind)
	if err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, models.NewValidationError(MsgEmailRequired)
	}
	_, existing, err := d.lookup(ctx, id.UID, id.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError(MsgUserExists)
	}
	a, err := s.Create(ctx, id.Email, id.UID, payload)
	if models.HasCode(err, models.CodeValidation) && strings.Contains(err.Error(), "already exists") {
		return nil, models.NewValidationError(MsgUserExists)
	}
	return a, err
}

// Link attaches the identity's uid to the existing profile of kind that
// has the identity's email.
func (d *Directory) Link(ctx context.Context, id *identity.Identity, kind models.UserKind) (*Account, error) {
	s, err := d.Store(kind)
	if err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, models.NewValidationError(MsgEmailRequired)
	}
	a, err := s.FindByIdentity(ctx, "", id.Email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.NewNotFoundError(MsgUserNotFound)
	}
	if err := s.LinkExternalUID(ctx, a.ID, id.UID); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, a.ID)
}

// Profile loads a profile by kind and id.
func (d *Directory) Profile(ctx context.Context, kind models.UserKind, id uint) (*Account, error) {
	s, err := d.Store(kind)
	if err != nil {
		return nil, err
	}
	a, err := s.FindByID(ctx, id)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewNotFoundError(MsgUserNotFound)
	}
	return a, err
}

// UpdateProfile applies fields to the caller's own profile.
func (d *Directory) UpdateProfile(ctx context.Context, caller *Account, fields map[string]any) (*Account, error) {
	s, err := d.Store(caller.Kind)
	if err != nil {
		return nil, err
	}
	a, err := s.UpdateProfile(ctx, caller.ID, fields)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewNotFoundError(MsgUserNotFound)
	}
	return a, err
}

// SetFCMToken stores the caller's device token.
func (d *Directory) SetFCMToken(ctx context.Context, caller *Account, token string) error {
	s, err := d.Store(caller.Kind)
	if err != nil {
		return err
	}
	return s.SetFCMToken(ctx, caller.ID, strings.TrimSpace(token))
}

// ClearToken removes token from every kind. It satisfies
// notifications.TokenCleaner.
func (d *Directory) ClearToken(ctx context.Context, token string) error {
	var errs []error
	for _, kind := range d.order {
		if _, err := d.stores[kind].ClearFCMToken(ctx, token); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisplayName returns the profile's name, "Someone" when it cannot be found.
func (d *Directory) DisplayName(ctx context.Context, kind models.UserKind, id uint) string {
	s, ok := d.stores[kind]
	if !ok {
		return unknownDisplayName
	}
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return unknownDisplayName
	}
	return s.DisplayName(a)
}

// Targets returns notification targets of kind. With no ids it returns
// every profile of that kind holding a device token.
func (d *Directory) Targets(ctx context.Context, kind models.UserKind, ids ...uint) ([]notifications.Target, error) {
	s, err := d.Store(kind)
	if err != nil {
		return nil, err
	}
	return s.Targets(ctx, ids...)
}

// Recipient builds a single in-app target for an account, carrying its
// token when it has one.
func (d *Directory) Recipient(ctx context.Context, kind models.UserKind, id uint) (notifications.Target, error) {
	to := notifications.Target{Recipient: notifications.Recipient{Kind: kind, ID: id}}
	targets, err := d.Targets(ctx, kind, id)
	if err != nil {
		return to, err
	}
	if len(targets) > 0 {
		to.Token = targets[0].Token
	}
	return to, nil
}
