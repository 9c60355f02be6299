package service

import (
	"context"
	"fmt"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type BiometricsInput struct {
	WeightKg     float64
	HeightCm     float64
	BodyFatPct   float64
	Measurements map[string]float64
	TakenAt      time.Time // Zero means now
}

func (in BiometricsInput) validate() error {
	if in.WeightKg <= 0 || in.WeightKg > 500 {
		return fmt.Errorf("%w: weight must be between 0 and 500 kg", ErrInvalidInput)
	}
	if in.HeightCm < 0 || in.HeightCm > 300 {
		return fmt.Errorf("%w: height must be between 0 and 300 cm", ErrInvalidInput)
	}
	if in.BodyFatPct < 0 || in.BodyFatPct > 100 {
		return fmt.Errorf("%w: body fat must be a percentage", ErrInvalidInput)
	}
	for name, v := range in.Measurements {
		if v <= 0 {
			return fmt.Errorf("%w: measurement %q must be positive", ErrInvalidInput, name)
		}
	}
	return nil
}

type PhotoInput struct {
	ObjectKey   string
	ContentType string
	Caption     string
	TakenAt     time.Time
}

// PhotoView carries a short lived download URL.
type PhotoView struct {
	domain.ProgressPhoto
	URL string `json:"url"`
}

// ProgressService tracks member body measurements and progress photos.
type ProgressService interface {
	RecordBiometrics(ctx context.Context, s domain.Session, in BiometricsInput) (*domain.Biometrics, error)
	ListBiometrics(ctx context.Context, s domain.Session, memberID primitive.ObjectID, from, to time.Time) ([]domain.Biometrics, error)
	RequestPhotoUpload(ctx context.Context, s domain.Session, contentType string) (*UploadTicket, error)
	// ConfirmPhoto records a photo after the client finished uploading it.
	ConfirmPhoto(ctx context.Context, s domain.Session, in PhotoInput) (*domain.ProgressPhoto, error)
	ListPhotos(ctx context.Context, s domain.Session, memberID primitive.ObjectID) ([]PhotoView, error)
}

type progressService struct {
	biometricsRepo repository.BiometricsRepository
	photoRepo      repository.PhotoRepository
	profileRepo    repository.ProfileRepository
	storage        storage.FileStorage
	log            *zap.SugaredLogger
}

func NewProgressService(
	biometricsRepo repository.BiometricsRepository,
	photoRepo repository.PhotoRepository,
	profileRepo repository.ProfileRepository,
	fileStorage storage.FileStorage,
	log *zap.SugaredLogger,
) ProgressService {
	return &progressService{
		biometricsRepo: biometricsRepo,
		photoRepo:      photoRepo,
		profileRepo:    profileRepo,
		storage:        fileStorage,
		log:            log,
	}
}

func (s *progressService) RecordBiometrics(ctx context.Context, sess domain.Session, in BiometricsInput) (*domain.Biometrics, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	takenAt := in.TakenAt
	now := nowUTC()
	if takenAt.IsZero() {
		takenAt = now
	}
	if takenAt.After(now.Add(time.Hour)) {
		return nil, fmt.Errorf("%w: measurement cannot be in the future", ErrInvalidInput)
	}
	b := &domain.Biometrics{
		MemberID:     sess.UserID,
		GymID:        sess.GymID,
		WeightKg:     in.WeightKg,
		HeightCm:     in.HeightCm,
		BodyFatPct:   in.BodyFatPct,
		Measurements: in.Measurements,
		TakenAt:      takenAt.UTC(),
	}
	id, err := s.biometricsRepo.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	b.ID = id
	return b, nil
}

func (s *progressService) ListBiometrics(ctx context.Context, sess domain.Session, memberID primitive.ObjectID, from, to time.Time) ([]domain.Biometrics, error) {
	member, err := resolveMember(ctx, s.profileRepo, sess, memberID)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	return s.biometricsRepo.ListByMember(ctx, member.ID, from, to)
}

func (s *progressService) RequestPhotoUpload(ctx context.Context, sess domain.Session, contentType string) (*UploadTicket, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return presignUpload(ctx, s.storage, storage.PrefixProgress, sess.GymID, sess.UserID, contentType)
}

func (s *progressService) ConfirmPhoto(ctx context.Context, sess domain.Session, in PhotoInput) (*domain.ProgressPhoto, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !storage.KeyBelongsTo(in.ObjectKey, storage.PrefixProgress, sess.GymID, sess.UserID) {
		return nil, ErrForeignKey
	}
	if !storage.IsSupportedImage(in.ContentType) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, storage.ErrUnsupportedContentType)
	}
	now := nowUTC()
	takenAt := in.TakenAt
	if takenAt.IsZero() {
		takenAt = now
	}
	photo := &domain.ProgressPhoto{
		MemberID:    sess.UserID,
		GymID:       sess.GymID,
		ObjectKey:   in.ObjectKey,
		ContentType: in.ContentType,
		Caption:     in.Caption,
		TakenAt:     takenAt.UTC(),
		UploadedAt:  now,
	}
	id, err := s.photoRepo.Create(ctx, photo)
	if err != nil {
		return nil, err
	}
	photo.ID = id
	return photo, nil
}

func (s *progressService) ListPhotos(ctx context.Context, sess domain.Session, memberID primitive.ObjectID) ([]PhotoView, error) {
	member, err := resolveMember(ctx, s.profileRepo, sess, memberID)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		url, err := s.storage.GeneratePresignedDownloadURL(ctx, p.ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			s.log.Errorw("failed to presign photo", "photo", p.ID.Hex(), "error", err)
			return nil, err
		}
		views = append(views, PhotoView{ProgressPhoto: p, URL: url})
	}
	return views, nil
}
