package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"custodycore/internal/blob"
	"custodycore/pkg/domain"
)

// ErrNoPhotoStore is returned when photo operations run without a configured
// blob backend.
var ErrNoPhotoStore = fmt.Errorf("photo store not configured")

func photoKey(animalID, filename string) string {
	return "animals/" + animalID + "/" + path.Base(filename)
}

// AttachPhoto stores an identification photo for an animal and records the
// blob key on the entry-ledger record.
func (s *Service) AttachPhoto(ctx context.Context, animalID, filename string, r io.Reader, contentType string) (blob.Info, error) {
	start := s.nowFn()
	var info blob.Info
	err := func() error {
		if s.photos == nil {
			return ErrNoPhotoStore
		}
		filename = strings.TrimSpace(filename)
		if filename == "" {
			return domain.ValidationError{Field: "filename"}
		}
		if _, ok := s.store.GetAnimal(animalID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
		}
		key := photoKey(animalID, filename)
		var err error
		info, err = s.photos.Put(ctx, key, r, blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"animal_id": animalID},
		})
		if err != nil {
			return err
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, txErr := tx.UpdateAnimal(animalID, func(a *AnimalRecord) error {
				a.PhotoReference = &key
				return nil
			})
			return txErr
		})
		if err != nil {
			return err
		}
		s.logger.Info("photo attached",
			zap.String("animal_id", animalID),
			zap.String("key", key),
			zap.Int64("size_bytes", info.Size))
		return nil
	}()
	s.observe(ctx, "attach_photo", start, err)
	return info, err
}

// OpenPhoto streams the photo currently referenced by the animal record. The
// caller closes the reader.
func (s *Service) OpenPhoto(ctx context.Context, animalID string) (blob.Info, io.ReadCloser, error) {
	if s.photos == nil {
		return blob.Info{}, nil, ErrNoPhotoStore
	}
	animal, ok := s.store.GetAnimal(animalID)
	if !ok {
		return blob.Info{}, nil, domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
	}
	if animal.PhotoReference == nil {
		return blob.Info{}, nil, domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID + "/photo"}
	}
	return s.photos.Get(ctx, *animal.PhotoReference)
}

// PhotoURL returns a pre-signed URL for the animal's photo, valid for the
// given expiry. Backends without signing support return blob.ErrUnsupported.
func (s *Service) PhotoURL(ctx context.Context, animalID string, expiry time.Duration) (string, error) {
	if s.photos == nil {
		return "", ErrNoPhotoStore
	}
	animal, ok := s.store.GetAnimal(animalID)
	if !ok {
		return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID}
	}
	if animal.PhotoReference == nil {
		return "", domain.NotFoundError{Entity: domain.EntityAnimal, ID: animalID + "/photo"}
	}
	return s.photos.PresignURL(ctx, *animal.PhotoReference, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}
