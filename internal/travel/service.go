package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrDestinationNotFound indicates the referenced destination does not exist.
	ErrDestinationNotFound = errors.New("destination not found")
	// ErrDuplicateDestination indicates a destination with the same name already exists.
	ErrDuplicateDestination = errors.New("destination already exists")
	// ErrEmptyName indicates a blank or whitespace-only destination name.
	ErrEmptyName = errors.New("destination name cannot be empty")
	// ErrEmptyContent indicates a blank or whitespace-only note content.
	ErrEmptyContent = errors.New("note content cannot be empty")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries an operation-scoped error code alongside its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew        = "travel.service.new"
	opListDestinations  = "travel.list_destinations"
	opCreateDestination = "travel.create_destination"
	opDeleteDestination = "travel.delete_destination"
	opGetDestination    = "travel.get_destination"
	opListNotes         = "travel.list_notes"
	opCreateNote        = "travel.create_note"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig carries the dependencies for constructing a Service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service implements destination and note operations against the database.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// ListDestinations returns every destination ordered by creation time.
func (s *Service) ListDestinations(ctx context.Context) ([]Destination, error) {
	var destinations []Destination
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&destinations).Error; err != nil {
		s.logError(opListDestinations, "query_failed", err)
		return nil, newServiceError(opListDestinations, "query_failed", err)
	}
	return destinations, nil
}

// CreateDestination persists a new destination with a unique, non-empty name.
func (s *Service) CreateDestination(ctx context.Context, name string) (Destination, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Destination{}, newServiceError(opCreateDestination, "empty_name", ErrEmptyName)
	}

	destination := Destination{Name: trimmed, CreatedAt: s.clock().UTC()}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Destination
		err := tx.Where("name = ?", trimmed).Take(&existing).Error
		if err == nil {
			return newServiceError(opCreateDestination, "duplicate_name", ErrDuplicateDestination)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opCreateDestination, "lookup_failed", err, zap.String("name", trimmed))
			return newServiceError(opCreateDestination, "lookup_failed", err)
		}

		if err := tx.Create(&destination).Error; err != nil {
			s.logError(opCreateDestination, "insert_failed", err, zap.String("name", trimmed))
			return newServiceError(opCreateDestination, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Destination{}, txErr
	}

	s.logger.Info("destination created",
		zap.Uint("destination_id", destination.ID),
		zap.String("name", destination.Name))
	return destination, nil
}

// DeleteDestination removes a destination together with its notes and
// reports how many notes were removed by the cascade.
func (s *Service) DeleteDestination(ctx context.Context, destinationID uint) (int64, error) {
	var removedNotes int64

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var destination Destination
		if err := tx.Take(&destination, destinationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opDeleteDestination, "not_found", ErrDestinationNotFound)
			}
			s.logError(opDeleteDestination, "lookup_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opDeleteDestination, "lookup_failed", err)
		}

		if err := tx.Model(&Note{}).
			Where("destination_id = ?", destinationID).
			Count(&removedNotes).Error; err != nil {
			s.logError(opDeleteDestination, "count_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opDeleteDestination, "count_failed", err)
		}

		if err := tx.Where("destination_id = ?", destinationID).Delete(&Note{}).Error; err != nil {
			s.logError(opDeleteDestination, "notes_delete_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opDeleteDestination, "notes_delete_failed", err)
		}

		if err := tx.Delete(&destination).Error; err != nil {
			s.logError(opDeleteDestination, "delete_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opDeleteDestination, "delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}

	s.logger.Info("destination deleted",
		zap.Uint("destination_id", destinationID),
		zap.Int64("removed_notes", removedNotes))
	return removedNotes, nil
}

// GetDestination fetches a single destination by identifier.
func (s *Service) GetDestination(ctx context.Context, destinationID uint) (Destination, error) {
	var destination Destination
	if err := s.db.WithContext(ctx).Take(&destination, destinationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Destination{}, newServiceError(opGetDestination, "not_found", ErrDestinationNotFound)
		}
		s.logError(opGetDestination, "query_failed", err, zap.Uint("destination_id", destinationID))
		return Destination{}, newServiceError(opGetDestination, "query_failed", err)
	}
	return destination, nil
}

// ListNotes returns the notes attached to an existing destination.
func (s *Service) ListNotes(ctx context.Context, destinationID uint) ([]Note, error) {
	if err := s.requireDestination(ctx, opListNotes, destinationID); err != nil {
		return nil, err
	}

	var notes []Note
	if err := s.db.WithContext(ctx).
		Where("destination_id = ?", destinationID).
		Order("id ASC").
		Find(&notes).Error; err != nil {
		s.logError(opListNotes, "query_failed", err, zap.Uint("destination_id", destinationID))
		return nil, newServiceError(opListNotes, "query_failed", err)
	}
	return notes, nil
}

// CreateNote persists a non-empty note for an existing destination.
func (s *Service) CreateNote(ctx context.Context, destinationID uint, content string) (Note, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Note{}, newServiceError(opCreateNote, "empty_content", ErrEmptyContent)
	}

	note := Note{
		DestinationID: destinationID,
		Content:       trimmed,
		CreatedAt:     s.clock().UTC(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var destination Destination
		if err := tx.Take(&destination, destinationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opCreateNote, "destination_not_found", ErrDestinationNotFound)
			}
			s.logError(opCreateNote, "lookup_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opCreateNote, "lookup_failed", err)
		}

		if err := tx.Create(&note).Error; err != nil {
			s.logError(opCreateNote, "insert_failed", err, zap.Uint("destination_id", destinationID))
			return newServiceError(opCreateNote, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}

	s.logger.Info("note created",
		zap.Uint("destination_id", destinationID),
		zap.Uint("note_id", note.ID))
	return note, nil
}

func (s *Service) requireDestination(ctx context.Context, operation string, destinationID uint) error {
	var destination Destination
	err := s.db.WithContext(ctx).Take(&destination, destinationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, "destination_not_found", ErrDestinationNotFound)
	}
	if err != nil {
		s.logError(operation, "lookup_failed", err, zap.Uint("destination_id", destinationID))
		return newServiceError(operation, "lookup_failed", err)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("travel service error", attrs...)
}
