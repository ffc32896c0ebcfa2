package space

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/types"
)

var (
	// ErrUserNotFound means the caller's identity could not be resolved
	// to a stored account.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoLocation means the caller never joined a space, so there is
	// no record to leave.
	ErrNoLocation = errors.New("no location record")
)

// Service implements the space join/leave operations. Every mutation
// that commits emits on the bus; reads never touch it.
type Service struct {
	log *log.Logger
	db  database.AskmeRepository
	bus *bus.Bus
}

func NewService(logger *log.Logger, db database.AskmeRepository, b *bus.Bus) *Service {
	return &Service{
		log: logger,
		db:  db,
		bus: b,
	}
}

// Join upserts the caller's location record and emits space.join with
// the resulting record. A user has exactly one record at any time:
// the first join creates it, later joins update it in place.
func (s *Service) Join(userId int, lat, lon float64) (types.Location, error) {
	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Location{}, ErrUserNotFound
		}
		return types.Location{}, fmt.Errorf("get account: %w", err)
	}

	var record database.Location
	existing, err := s.db.GetLocationByUserId(userId)
	switch {
	case err == nil:
		record, err = s.db.UpdateLocation(existing.Id, lat, lon)
		if err != nil {
			return types.Location{}, fmt.Errorf("update location: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		record, err = s.db.CreateLocation(userId, lat, lon)
		if err != nil {
			return types.Location{}, fmt.Errorf("create location: %w", err)
		}
	default:
		return types.Location{}, fmt.Errorf("get location: %w", err)
	}

	location := toLocation(record, user)
	s.bus.Emit(bus.TopicSpaceJoin, bus.Event{Location: &location})

	return location, nil
}

// Leave sets the caller's location record to the sentinel coordinates
// and emits space.leave. Leaving before ever joining is a not-found
// error: there is no record to sentinel.
func (s *Service) Leave(userId int) (types.Location, error) {
	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Location{}, ErrUserNotFound
		}
		return types.Location{}, fmt.Errorf("get account: %w", err)
	}

	existing, err := s.db.GetLocationByUserId(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Location{}, ErrNoLocation
		}
		return types.Location{}, fmt.Errorf("get location: %w", err)
	}

	record, err := s.db.UpdateLocation(existing.Id, 0, 0)
	if err != nil {
		return types.Location{}, fmt.Errorf("update location: %w", err)
	}

	location := toLocation(record, user)
	s.bus.Emit(bus.TopicSpaceLeave, bus.Event{Location: &location})

	return location, nil
}

// List returns the current derived space: every location whose
// coordinates are not both zero, joined with its owning user.
func (s *Service) List() ([]types.Location, error) {
	records, err := s.db.ListSpaceLocations()
	if err != nil {
		return nil, fmt.Errorf("list space locations: %w", err)
	}

	locations := make([]types.Location, 0, len(records))
	for _, record := range records {
		locations = append(locations, toLocation(record, record.User))
	}

	return locations, nil
}

// MyLocation returns the caller's current record, or nil if they
// never joined a space.
func (s *Service) MyLocation(userId int) (*types.Location, error) {
	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	record, err := s.db.GetLocationByUserId(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	location := toLocation(record, user)
	return &location, nil
}

func toLocation(record database.Location, user database.User) types.Location {
	return types.Location{
		Id:     record.Id,
		UserId: record.UserId,
		Lat:    record.Lat,
		Lon:    record.Lon,
		User: types.User{
			Id:           user.Id,
			Nickname:     user.Nickname,
			EmailAddress: user.EmailAddress,
			Online:       user.Online,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
