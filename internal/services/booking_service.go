package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	intconfig "tms/internal/config"
	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/metrics"
	"tms/internal/repositories"
	"tms/internal/utils"
)

const maxAvailabilityDays = 31

type BookingService struct {
	DB        *sql.DB
	Bookings  repositories.BookingRepository
	Schedules repositories.ScheduleRepository
	Settings  repositories.SettingsRepository
	Students  repositories.StudentRepository
	Routes    repositories.RouteRepository
	Now       func() time.Time
	RequestID string
}

func (s BookingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DateRange parses from/to query values; defaults to today..today+7.
func DateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := utils.StartOfDay(now)
	if strings.TrimSpace(from) != "" {
		d, err := utils.ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, domain.ValidationError{Field: "from", Msg: "expected YYYY-MM-DD"}
		}
		start = d
	}
	end := start.AddDate(0, 0, 7)
	if strings.TrimSpace(to) != "" {
		d, err := utils.ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, domain.ValidationError{Field: "to", Msg: "expected YYYY-MM-DD"}
		}
		end = d
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "to", Msg: "must not be before from"}
	}
	if end.After(start.AddDate(0, 0, maxAvailabilityDays)) {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "to", Msg: fmt.Sprintf("range may span at most %d days", maxAvailabilityDays)}
	}
	return start, end, nil
}

// BookingWindow is when a schedule accepts bookings.
type BookingWindow struct {
	Open     bool
	Reason   string
	OpensAt  time.Time
	ClosesAt time.Time
}

// WindowFor applies the booking settings to a schedule at now.
func WindowFor(settings models.BookingSettings, sch models.Schedule, now time.Time) BookingWindow {
	var w BookingWindow
	departure, err := utils.CombineDateClock(sch.ScheduleDate, sch.DepartureTime)
	if err != nil {
		w.Reason = "invalid departure time"
		return w
	}
	w.OpensAt = utils.StartOfDay(sch.ScheduleDate).AddDate(0, 0, -settings.OpenDaysAhead)
	w.ClosesAt = departure.Add(-time.Duration(settings.CutoffHoursBefore) * time.Hour)

	switch {
	case !settings.Enabled:
		w.Reason = "booking is disabled"
	case sch.Status != "scheduled":
		w.Reason = "trip is " + sch.Status
	case now.Before(w.OpensAt):
		w.Reason = "booking not open yet"
	case !now.Before(w.ClosesAt):
		w.Reason = "booking closed"
	default:
		w.Open = true
	}
	return w
}

// Availability lists schedules in the range annotated with seats and window verdict.
func (s BookingService) Availability(ctx context.Context, routeID int64, from, to string) ([]models.ScheduleAvailability, error) {
	now := s.now()
	start, end, err := DateRange(from, to, now)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings.BookingSettings(ctx)
	if err != nil {
		return nil, err
	}
	schedules, err := s.Schedules.ListRange(ctx, routeID, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]models.ScheduleAvailability, 0, len(schedules))
	for _, sch := range schedules {
		w := WindowFor(settings, sch, now)
		a := models.ScheduleAvailability{
			Schedule:       sch,
			AvailableSeats: sch.AvailableSeats(),
			BookingOpen:    w.Open,
			ClosedReason:   w.Reason,
		}
		if !w.OpensAt.IsZero() {
			opens, closes := w.OpensAt, w.ClosesAt
			a.OpensAt, a.ClosesAt = &opens, &closes
		}
		out = append(out, a)
	}
	return out, nil
}

type BookingRequest struct {
	ScheduleID   int64  `json:"schedule_id"`
	BoardingStop string `json:"boarding_stop"`
}

// Create books the next free seat on a schedule for the student.
func (s BookingService) Create(ctx context.Context, studentID int64, in BookingRequest) (models.Booking, error) {
	if in.ScheduleID <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "schedule_id", Msg: "required"}
	}
	student, err := s.Students.GetByID(ctx, studentID)
	if err != nil {
		return models.Booking{}, err
	}
	settings, err := s.Settings.BookingSettings(ctx)
	if err != nil {
		return models.Booking{}, err
	}

	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return models.Booking{}, err
	}
	defer tx.Rollback()

	sch, err := s.Schedules.GetForUpdate(ctx, tx, in.ScheduleID)
	if err != nil {
		return models.Booking{}, err
	}
	if w := WindowFor(settings, sch, s.now()); !w.Open {
		return models.Booking{}, domain.ValidationError{Field: "schedule_id", Msg: w.Reason}
	}
	if student.AllocatedRouteID != nil && *student.AllocatedRouteID != sch.RouteID {
		return models.Booking{}, domain.ForbiddenError{Msg: "you are not enrolled on this route"}
	}

	exists, err := s.Bookings.ActiveExists(ctx, tx, studentID, sch.ID)
	if err != nil {
		return models.Booking{}, err
	}
	if exists {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "you already have a booking on this trip"}
	}
	if sch.BookedSeats >= sch.TotalSeats {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "no seats left on this trip"}
	}

	taken, err := s.Bookings.TakenSeats(ctx, tx, sch.ID)
	if err != nil {
		return models.Booking{}, err
	}
	seat := nextFreeSeat(taken, sch.TotalSeats)
	if seat == "" {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "no seats left on this trip"}
	}

	boarding := utils.NormalizeSpace(in.BoardingStop)
	if boarding == "" && student.BoardingStopID != nil {
		if stop, err := s.Routes.StopOnRoute(ctx, sch.RouteID, *student.BoardingStopID); err == nil {
			boarding = stop.StopName
		}
	}

	id, err := s.Bookings.Insert(ctx, tx, models.Booking{
		StudentID:    studentID,
		ScheduleID:   sch.ID,
		RouteID:      sch.RouteID,
		TripDate:     sch.Date,
		SeatNumber:   seat,
		BoardingStop: boarding,
	})
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.Schedules.AdjustBookedSeats(ctx, tx, sch.ID, 1); err != nil {
		return models.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Booking{}, err
	}

	metrics.BookingsCreated.Inc()
	utils.LogEvent(s.RequestID, "booking", "create", fmt.Sprintf("id=%d schedule_id=%d seat=%s", id, sch.ID, seat))
	return s.Bookings.GetByID(ctx, id)
}

func nextFreeSeat(taken map[string]bool, total int) string {
	for i := 1; i <= total; i++ {
		seat := strconv.Itoa(i)
		if !taken[seat] {
			return seat
		}
	}
	return ""
}

// Cancel releases the student's seat while the booking window is still open.
func (s BookingService) Cancel(ctx context.Context, studentID, bookingID int64) error {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.StudentID != studentID {
		return domain.ForbiddenError{Msg: "booking belongs to another student"}
	}
	if b.Status != models.BookingConfirmed {
		return domain.ConflictError{Resource: "booking", Msg: "booking is already " + b.Status}
	}
	settings, err := s.Settings.BookingSettings(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sch, err := s.Schedules.GetForUpdate(ctx, tx, b.ScheduleID)
	if err != nil {
		return err
	}
	now := s.now()
	if w := WindowFor(settings, sch, now); !w.ClosesAt.IsZero() && !now.Before(w.ClosesAt) {
		return domain.ValidationError{Field: "booking", Msg: "cancellation window has closed"}
	}

	ok, err := s.Bookings.Cancel(ctx, tx, bookingID, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ConflictError{Resource: "booking", Msg: "booking is no longer active"}
	}
	if err := s.Schedules.AdjustBookedSeats(ctx, tx, sch.ID, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	metrics.BookingsCancelled.Inc()
	utils.LogEvent(s.RequestID, "booking", "cancel", fmt.Sprintf("id=%d schedule_id=%d", bookingID, sch.ID))
	return nil
}

// Manifest lists confirmed bookings; drivers only see trips they drive.
func (s BookingService) Manifest(ctx context.Context, p domain.Principal, scheduleID int64) ([]models.Booking, error) {
	sch, err := s.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if p.Role == domain.RoleDriver {
		assigned := sch.DriverID != nil && *sch.DriverID == p.UserID
		if !assigned && sch.DriverID == nil {
			route, err := s.Routes.GetByID(ctx, sch.RouteID)
			if err != nil {
				return nil, err
			}
			assigned = route.DriverID != nil && *route.DriverID == p.UserID
		}
		if !assigned {
			return nil, domain.ForbiddenError{Msg: "trip is assigned to another driver"}
		}
	}
	return s.Bookings.ListBySchedule(ctx, scheduleID)
}

// CreateSchedule is the staff operation that opens a trip for booking.
func (s BookingService) CreateSchedule(ctx context.Context, sch models.Schedule) (models.Schedule, error) {
	if sch.RouteID <= 0 {
		return sch, domain.ValidationError{Field: "route_id", Msg: "required"}
	}
	d, err := utils.ParseDate(sch.Date)
	if err != nil {
		return sch, domain.ValidationError{Field: "schedule_date", Msg: "expected YYYY-MM-DD"}
	}
	sch.ScheduleDate = d
	if _, err := utils.CombineDateClock(d, sch.DepartureTime); err != nil {
		return sch, domain.ValidationError{Field: "departure_time", Msg: "expected HH:MM"}
	}
	route, err := s.Routes.GetByID(ctx, sch.RouteID)
	if err != nil {
		return sch, err
	}
	if sch.TotalSeats <= 0 {
		sch.TotalSeats = route.TotalCapacity
	}
	if sch.TotalSeats <= 0 {
		return sch, domain.ValidationError{Field: "total_seats", Msg: "must be positive"}
	}
	if sch.DriverID == nil {
		sch.DriverID = route.DriverID
	}
	if sch.VehicleID == nil {
		sch.VehicleID = route.VehicleID
	}
	id, err := s.Schedules.Create(ctx, sch)
	if err != nil {
		return sch, err
	}
	utils.LogEvent(s.RequestID, "schedule", "create", fmt.Sprintf("id=%d route_id=%d date=%s", id, sch.RouteID, sch.Date))
	return s.Schedules.GetByID(ctx, id)
}

// UpdateSettings validates and stores the booking window.
func (s BookingService) UpdateSettings(ctx context.Context, in models.BookingSettings) (models.BookingSettings, error) {
	if in.OpenDaysAhead < 0 || in.OpenDaysAhead > 90 {
		return in, domain.ValidationError{Field: "open_days_ahead", Msg: "must be between 0 and 90"}
	}
	if in.CutoffHoursBefore < 0 || in.CutoffHoursBefore > 72 {
		return in, domain.ValidationError{Field: "cutoff_hours_before", Msg: "must be between 0 and 72"}
	}
	if err := s.Settings.SaveBookingSettings(ctx, in); err != nil {
		return in, err
	}
	utils.LogEvent(s.RequestID, "booking", "settings", fmt.Sprintf("enabled=%v open=%d cutoff=%d", in.Enabled, in.OpenDaysAhead, in.CutoffHoursBefore))
	return in, nil
}
