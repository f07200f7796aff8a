package services

import (
	"context"
	"fmt"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/geo"
	"tms/internal/metrics"
	"tms/internal/report"
	"tms/internal/repositories"
	"tms/internal/utils"

	"github.com/getsentry/sentry-go"
)

// StaleAfter marks a driver position as outdated.
const StaleAfter = 10 * time.Minute

// LivePublisher pushes an event to a route's live subscribers; *realtime.Hub satisfies it.
type LivePublisher interface {
	Publish(routeID int64, eventType string, payload any)
}

type LocationService struct {
	Drivers   repositories.DriverRepository
	Students  repositories.StudentRepository
	Routes    repositories.RouteRepository
	Tracking  repositories.LocationRepository
	Hub       LivePublisher
	Now       func() time.Time
	RequestID string
}

func (s LocationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LiveLocation is the route view shown to passengers.
type LiveLocation struct {
	RouteID    int64              `json:"route_id"`
	DriverID   int64              `json:"driver_id"`
	DriverName string             `json:"driver_name"`
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Accuracy   *float64           `json:"accuracy,omitempty"`
	Speed      *float64           `json:"speed,omitempty"`
	Heading    *float64           `json:"heading,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Stale      bool               `json:"stale"`
	Progress   *geo.RouteProgress `json:"progress,omitempty"`
}

func validateFix(fix models.LocationFix) error {
	if !geo.IsValidLatLon(fix.Latitude, fix.Longitude) {
		return domain.ValidationError{Field: "latitude/longitude", Msg: "coordinates out of range"}
	}
	if fix.Accuracy != nil && *fix.Accuracy < 0 {
		return domain.ValidationError{Field: "accuracy", Msg: "must not be negative"}
	}
	if fix.Speed != nil && *fix.Speed < 0 {
		return domain.ValidationError{Field: "speed", Msg: "must not be negative"}
	}
	if fix.Heading != nil && (*fix.Heading < 0 || *fix.Heading > 360) {
		return domain.ValidationError{Field: "heading", Msg: "must be between 0 and 360"}
	}
	return nil
}

// UpdateDriver records the driver's position and pushes it to the route's live channel.
func (s LocationService) UpdateDriver(ctx context.Context, driverID int64, fix models.LocationFix) (LiveLocation, error) {
	if err := validateFix(fix); err != nil {
		return LiveLocation{}, err
	}
	d, err := s.Drivers.GetByID(ctx, driverID)
	if err != nil {
		return LiveLocation{}, err
	}
	if !d.LocationSharing {
		return LiveLocation{}, domain.ForbiddenError{Msg: "location sharing is disabled"}
	}

	now := s.now()
	if err := s.Drivers.UpdatePosition(ctx, driverID, fix, now); err != nil {
		return LiveLocation{}, err
	}
	metrics.LocationUpdates.WithLabelValues("driver").Inc()

	var routeID int64
	if d.AssignedRouteID != nil {
		routeID = *d.AssignedRouteID
	}
	s.track(ctx, "driver", driverID, routeID, fix, now)

	live := LiveLocation{
		RouteID:    routeID,
		DriverID:   driverID,
		DriverName: d.Name,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Accuracy:   fix.Accuracy,
		Speed:      fix.Speed,
		Heading:    fix.Heading,
		UpdatedAt:  now,
	}
	if routeID > 0 {
		if err := s.Routes.UpdateGPS(ctx, routeID, fix.Latitude, fix.Longitude, now); err != nil {
			s.nonCritical("route_gps_error", err)
		}
		if stops, err := s.Routes.Stops(ctx, routeID); err == nil {
			p := geo.ComputeProgress(stops, fix.Latitude, fix.Longitude, speedOf(fix.Speed))
			live.Progress = &p
		} else {
			s.nonCritical("stops_error", err)
		}
		if s.Hub != nil {
			s.Hub.Publish(routeID, "location", live)
		}
	}
	return live, nil
}

// UpdateStudent stores a student's own position when they opted in.
func (s LocationService) UpdateStudent(ctx context.Context, studentID int64, fix models.LocationFix) error {
	if err := validateFix(fix); err != nil {
		return err
	}
	st, err := s.Students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !st.LocationSharing {
		return domain.ForbiddenError{Msg: "location sharing is disabled"}
	}
	now := s.now()
	if err := s.Students.UpdatePosition(ctx, studentID, fix, now); err != nil {
		return err
	}
	metrics.LocationUpdates.WithLabelValues("student").Inc()

	var routeID int64
	if st.AllocatedRouteID != nil {
		routeID = *st.AllocatedRouteID
	}
	s.track(ctx, "student", studentID, routeID, fix, now)
	return nil
}

func (s LocationService) SetSharing(ctx context.Context, p domain.Principal, enabled bool) error {
	switch p.Role {
	case domain.RoleDriver:
		return s.Drivers.SetLocationSharing(ctx, p.UserID, enabled)
	case domain.RoleStudent:
		return s.Students.SetLocationSharing(ctx, p.UserID, enabled)
	default:
		return domain.ForbiddenError{Msg: "only students and drivers share location"}
	}
}

// ForRoute returns the latest known bus position on routeID with progress.
func (s LocationService) ForRoute(ctx context.Context, routeID int64) (LiveLocation, error) {
	route, err := s.Routes.GetByID(ctx, routeID)
	if err != nil {
		return LiveLocation{}, err
	}
	d, err := s.Drivers.ForRoute(ctx, routeID)
	if err != nil {
		return LiveLocation{}, err
	}
	if d.CurrentLat == nil || d.CurrentLng == nil || d.LocationAt == nil {
		return LiveLocation{}, domain.NotFoundError{Resource: "live location"}
	}

	now := s.now()
	live := LiveLocation{
		RouteID:    route.ID,
		DriverID:   d.ID,
		DriverName: d.Name,
		Latitude:   *d.CurrentLat,
		Longitude:  *d.CurrentLng,
		UpdatedAt:  *d.LocationAt,
		Stale:      geo.IsStale(*d.LocationAt, now, StaleAfter),
	}
	if speed, err := s.Tracking.LatestSpeed(ctx, d.ID, now.Add(-StaleAfter)); err == nil {
		live.Speed = speed
	}
	stops, err := s.Routes.Stops(ctx, routeID)
	if err != nil {
		return LiveLocation{}, err
	}
	p := geo.ComputeProgress(stops, live.Latitude, live.Longitude, speedOf(live.Speed))
	live.Progress = &p
	return live, nil
}

func (s LocationService) History(ctx context.Context, driverID int64, limit int) ([]models.TrackingPoint, error) {
	if _, err := s.Drivers.GetByID(ctx, driverID); err != nil {
		return nil, err
	}
	return s.Tracking.History(ctx, "driver", driverID, limit)
}

func (s LocationService) track(ctx context.Context, subjectType string, subjectID, routeID int64, fix models.LocationFix, at time.Time) {
	p := models.TrackingPoint{SubjectType: subjectType, SubjectID: subjectID, LocationFix: fix, RecordedAt: at}
	if routeID > 0 {
		p.RouteID = &routeID
	}
	if err := s.Tracking.Insert(ctx, p); err != nil {
		s.nonCritical("tracking_error", fmt.Errorf("%s %d: %w", subjectType, subjectID, err))
	}
}

func (s LocationService) nonCritical(action string, err error) {
	utils.LogEvent(s.RequestID, "location", action, err.Error())
	report.ReportErrorWithOptions(err, report.Options{
		Tags:  map[string]string{"module": "location", "action": action, "request_id": s.RequestID},
		Level: sentry.LevelWarning,
	})
}

func speedOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
