package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-engine/internal/status"
	"ticket-engine/models"
)

// PBRegistrations implements RegistrationStore on top of the registrations
// collection.
type PBRegistrations struct {
	app core.App
}

func NewPBRegistrations(app core.App) *PBRegistrations {
	return &PBRegistrations{app: app}
}

func (s *PBRegistrations) Find(ctx context.Context, userID, eventID string) (*models.EventRegistration, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"registrations",
		"user = {:user} && event = {:event}",
		dbx.Params{"user": userID, "event": eventID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("registrations.Find: %w", err)
	}
	return registrationFromRecord(record), nil
}

func (s *PBRegistrations) FindByEventName(ctx context.Context, userID, eventName string) (*models.EventRegistration, error) {
	event, err := s.app.FindFirstRecordByFilter(
		"events",
		"name = {:name}",
		dbx.Params{"name": eventName},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("registrations.FindByEventName: %w", err)
	}

	return s.Find(ctx, userID, event.Id)
}

func (s *PBRegistrations) Confirm(ctx context.Context, registrationID string) error {
	record, err := s.app.FindRecordById("registrations", registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrRegistrationNotFound
		}
		return fmt.Errorf("registrations.Confirm: %w", err)
	}

	if record.GetString("status") == string(models.RegistrationConfirmed) {
		return nil
	}

	record.Set("status", string(models.RegistrationConfirmed))
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("registrations.Confirm: save: %w", err)
	}
	return nil
}

// CheckIn is a single conditional update so that two simultaneous gate scans
// cannot both succeed for one ticket.
func (s *PBRegistrations) CheckIn(ctx context.Context, registrationID string, at time.Time) error {
	dt, err := types.ParseDateTime(at)
	if err != nil {
		dt = types.NowDateTime()
	}

	q := s.app.DB().NewQuery(`
		UPDATE registrations
		SET checked_in = TRUE,
		    checked_in_at = {:at},
		    updated = {:updated}
		WHERE id = {:id} AND checked_in = FALSE
	`).Bind(dbx.Params{
		"id":      registrationID,
		"at":      dt.String(),
		"updated": types.NowDateTime().String(),
	}).WithContext(ctx)

	res, err := q.Execute()
	if err != nil {
		return fmt.Errorf("registrations.CheckIn: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registrations.CheckIn: rows affected: %w", err)
	}
	if affected == 0 {
		return status.ErrCheckInConflict
	}
	return nil
}

func registrationFromRecord(r *core.Record) *models.EventRegistration {
	reg := &models.EventRegistration{
		ID:        r.Id,
		UserID:    r.GetString("user"),
		EventID:   r.GetString("event"),
		Status:    models.RegistrationStatus(r.GetString("status")),
		CheckedIn: r.GetBool("checked_in"),
	}

	if at := r.GetDateTime("checked_in_at"); !at.IsZero() {
		t := at.Time()
		reg.CheckedInAt = &t
	}

	return reg
}
