package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&Destination{}, &Note{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database: openTestDatabase(t),
		Clock:    func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func TestNewServiceRequiresDatabase(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	if err == nil {
		t.Fatal("expected error for missing database")
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Code() != "travel.service.new.missing_database" {
		t.Fatalf("unexpected error code: %s", serviceErr.Code())
	}
}

func TestCreateDestinationTrimsName(t *testing.T) {
	service := newTestService(t)

	destination, err := service.CreateDestination(context.Background(), "  Paris  ")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if destination.Name != "Paris" {
		t.Fatalf("expected trimmed name, got %q", destination.Name)
	}
	if destination.ID == 0 {
		t.Fatal("expected assigned identifier")
	}
}

func TestCreateDestinationRejectsEmptyName(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateDestination(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
}

func TestCreateDestinationRejectsDuplicateName(t *testing.T) {
	service := newTestService(t)

	if _, err := service.CreateDestination(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	_, err := service.CreateDestination(context.Background(), "Paris")
	if !errors.Is(err, ErrDuplicateDestination) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestCreateDestinationNamesAreCaseSensitive(t *testing.T) {
	service := newTestService(t)

	if _, err := service.CreateDestination(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if _, err := service.CreateDestination(context.Background(), "paris"); err != nil {
		t.Fatalf("expected case-sensitive uniqueness, got %v", err)
	}
}

func TestDeleteDestinationCascadesNotes(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	destination, err := service.CreateDestination(ctx, "Kyoto")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := service.CreateNote(ctx, destination.ID, fmt.Sprintf("note %d", i)); err != nil {
			t.Fatalf("unexpected note error: %v", err)
		}
	}

	removed, err := service.DeleteDestination(ctx, destination.ID)
	if err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed notes, got %d", removed)
	}

	if _, err := service.GetDestination(ctx, destination.ID); !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected destination gone, got %v", err)
	}

	var orphaned int64
	if err := service.db.Model(&Note{}).Where("destination_id = ?", destination.ID).Count(&orphaned).Error; err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if orphaned != 0 {
		t.Fatalf("expected no orphaned notes, found %d", orphaned)
	}
}

func TestDeleteDestinationMissing(t *testing.T) {
	service := newTestService(t)

	_, err := service.DeleteDestination(context.Background(), 42)
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateNoteRejectsBlankContent(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	destination, err := service.CreateDestination(ctx, "Lisbon")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	_, err = service.CreateNote(ctx, destination.ID, " \t\n ")
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestCreateNoteRequiresDestination(t *testing.T) {
	service := newTestService(t)

	_, err := service.CreateNote(context.Background(), 99, "The Louvre closes on Tuesdays")
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListNotesRequiresDestination(t *testing.T) {
	service := newTestService(t)

	_, err := service.ListNotes(context.Background(), 99)
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListNotesReturnsNotesInOrder(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	destination, err := service.CreateDestination(ctx, "Rome")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	first, err := service.CreateNote(ctx, destination.ID, "Colosseum tickets sell out early")
	if err != nil {
		t.Fatalf("unexpected note error: %v", err)
	}
	second, err := service.CreateNote(ctx, destination.ID, "Vatican closed on Sundays")
	if err != nil {
		t.Fatalf("unexpected note error: %v", err)
	}

	notes, err := service.ListNotes(ctx, destination.ID)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].ID != first.ID || notes[1].ID != second.ID {
		t.Fatalf("unexpected note ordering: %v, %v", notes[0].ID, notes[1].ID)
	}
}
