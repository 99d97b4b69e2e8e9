package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"villa-api/domain"
	"villa-api/dto"
	"villa-api/events"
	"villa-api/repositories"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// VillaService is the villa resource contract used by the controllers.
// Every error it returns is a *Error.
type VillaService interface {
	List(ctx context.Context) ([]dto.VillaDTO, error)
	Get(ctx context.Context, id uint) (*dto.VillaDTO, error)
	Create(ctx context.Context, villa *dto.VillaDTO) (*dto.VillaDTO, error)
	Update(ctx context.Context, id uint, villa *dto.VillaDTO) error
	// PartialUpdate applies an RFC 6902 JSON Patch document to the villa.
	PartialUpdate(ctx context.Context, id uint, patch []byte) error
	Delete(ctx context.Context, id uint) error
}

type villaService struct {
	repo      repositories.VillaRepository
	publisher events.Publisher
	validate  *validator.Validate
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewVillaService creates the service. A nil publisher disables events.
func NewVillaService(repo repositories.VillaRepository, publisher events.Publisher, logger logrus.FieldLogger) VillaService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &villaService{
		repo:      repo,
		publisher: publisher,
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every villa ordered by id.
func (s *villaService) List(ctx context.Context) ([]dto.VillaDTO, error) {
	s.logger.Info("Getting all villas")

	villas, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal("cannot list villas", err)
	}
	return dto.FromDomainList(villas), nil
}

// Get returns the villa with the given id.
func (s *villaService) Get(ctx context.Context, id uint) (*dto.VillaDTO, error) {
	if id == 0 {
		s.logger.WithField("villa_id", id).Error("Get villa called with id 0")
		return nil, invalidArgument("id must be greater than 0")
	}

	villa, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := dto.FromDomain(*villa)
	return &out, nil
}

// Create stores a new villa with ID = highest existing ID + 1.
func (s *villaService) Create(ctx context.Context, in *dto.VillaDTO) (*dto.VillaDTO, error) {
	if in == nil {
		return nil, invalidArgument("villa is required")
	}

	// 1. Names are unique regardless of case
	if err := s.checkNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	// 2. The store assigns ids, never the client
	if in.ID > 0 {
		s.logger.WithField("villa_id", in.ID).Error("Create villa called with an id")
		return nil, &Error{Kind: KindInvalidArgument, Message: "invalid villa", Err: ErrIDAssigned}
	}

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	// 3. Next id
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal("cannot list villas", err)
	}
	var maxID uint
	for _, v := range existing {
		if v.ID > maxID {
			maxID = v.ID
		}
	}

	villa := in.ToDomain()
	villa.ID = maxID + 1
	villa.CreatedDate = s.now().UTC()
	villa.UpdatedDate = villa.CreatedDate

	// 4. Persist
	if err := s.repo.Add(ctx, &villa); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, conflict(villa.Name)
		}
		return nil, internal("cannot create villa", err)
	}

	s.logger.WithFields(logrus.Fields{"villa_id": villa.ID, "name": villa.Name}).Info("Villa created")
	s.publish(ctx, events.NewEvent(events.ActionCreated, villa.ID, &villa, villa.CreatedDate))

	out := dto.FromDomain(villa)
	return &out, nil
}

// Update replaces every mutable field of villa id with the values in in.
func (s *villaService) Update(ctx context.Context, id uint, in *dto.VillaDTO) error {
	if in == nil {
		return invalidArgument("villa is required")
	}
	if id == 0 || id != in.ID {
		s.logger.WithFields(logrus.Fields{"villa_id": id, "body_id": in.ID}).Error("Update villa id mismatch")
		return invalidArgument("id in path and body must match and be greater than 0")
	}
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}

	villa, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkNameFree(ctx, in.Name, id); err != nil {
		return err
	}

	in.ApplyTo(villa)
	return s.save(ctx, villa)
}

// PartialUpdate loads the villa, applies the patch to a copy of its DTO,
// validates the copy and only then persists it. Nothing is written when
// any step fails. A patch without operations (empty body, null or [])
// is rejected before the villa is looked up.
func (s *villaService) PartialUpdate(ctx context.Context, id uint, patch []byte) error {
	if len(bytes.TrimSpace(patch)) == 0 || id == 0 {
		return invalidArgument("patch document and an id greater than 0 are required")
	}

	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Message: "malformed patch document", Err: err}
	}
	if len(ops) == 0 {
		return invalidArgument("patch document must contain at least one operation")
	}

	villa, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	current, err := json.Marshal(dto.FromDomain(*villa))
	if err != nil {
		return internal("cannot encode villa", err)
	}
	patched, err := ops.Apply(current)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Message: "patch cannot be applied", Err: err}
	}

	clone, err := decodePatched(patched)
	if err != nil {
		return err
	}
	if clone.ID != id {
		return &Error{
			Kind:    KindInvalidArgument,
			Message: "invalid villa",
			Fields:  map[string]string{"id": "cannot be changed"},
		}
	}
	if err := s.validate.Struct(clone); err != nil {
		return validationError(err)
	}
	if err := s.checkNameFree(ctx, clone.Name, id); err != nil {
		return err
	}

	updated := *villa
	clone.ApplyTo(&updated)
	return s.save(ctx, &updated)
}

// Delete removes the villa with the given id.
func (s *villaService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		s.logger.WithField("villa_id", id).Error("Delete villa called with id 0")
		return invalidArgument("id must be greater than 0")
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrVillaNotFound) {
			return notFound(id)
		}
		return internal("cannot delete villa", err)
	}

	s.logger.WithField("villa_id", id).Info("Villa deleted")
	s.publish(ctx, events.NewEvent(events.ActionDeleted, id, nil, s.now().UTC()))
	return nil
}

func (s *villaService) find(ctx context.Context, id uint) (*domain.Villa, error) {
	villa, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrVillaNotFound) {
			return nil, notFound(id)
		}
		return nil, internal("cannot load villa", err)
	}
	return villa, nil
}

// checkNameFree fails with a conflict when another villa (ID != self) uses name.
func (s *villaService) checkNameFree(ctx context.Context, name string, self uint) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, repositories.ErrVillaNotFound):
		return nil
	case err != nil:
		return internal("cannot look up villa name", err)
	case existing.ID != self:
		s.logger.WithField("name", name).Error("Villa already exists")
		return conflict(name)
	}
	return nil
}

func (s *villaService) save(ctx context.Context, villa *domain.Villa) error {
	villa.UpdatedDate = s.now().UTC()
	if err := s.repo.Update(ctx, villa); err != nil {
		switch {
		case errors.Is(err, repositories.ErrVillaNotFound):
			return notFound(villa.ID)
		case errors.Is(err, repositories.ErrDuplicateName):
			return conflict(villa.Name)
		}
		return internal("cannot update villa", err)
	}

	s.logger.WithField("villa_id", villa.ID).Info("Villa updated")
	s.publish(ctx, events.NewEvent(events.ActionUpdated, villa.ID, villa, villa.UpdatedDate))
	return nil
}

// publish never fails the caller; the change is already committed.
func (s *villaService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Error("cannot publish villa event")
	}
}

// decodePatched reads the patched document back into a DTO. Unknown fields
// and wrongly typed values are reported per field.
func decodePatched(doc []byte) (*dto.VillaDTO, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()

	var clone dto.VillaDTO
	if err := dec.Decode(&clone); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &Error{
				Kind:    KindInvalidArgument,
				Message: "invalid villa",
				Fields:  map[string]string{typeErr.Field: fmt.Sprintf("must be a %s", typeErr.Type)},
			}
		}
		return nil, &Error{Kind: KindInvalidArgument, Message: "patch produced an invalid villa", Err: err}
	}
	return &clone, nil
}
