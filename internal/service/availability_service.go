package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hubbook/internal/config"
	"hubbook/internal/database"
	"hubbook/internal/domain"
	"hubbook/internal/events"
	"hubbook/internal/metrics"
	"hubbook/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService is the slot availability and booking engine. It merges
// schedule overrides with capacity records into daily views, runs the atomic
// book/cancel transactions, and drives cache population and invalidation.
// The cache is advisory: every cache failure is logged and swallowed.
type AvailabilityService struct {
	store           domain.Store
	cache           domain.AvailabilityCache
	eventBus        domain.EventPublisher
	defaultCapacity int
	cacheTTL        time.Duration
	storeTimeout    time.Duration
	logger          *zerolog.Logger
}

func NewAvailabilityService(store domain.Store, cache domain.AvailabilityCache, eventBus domain.EventPublisher, cfg config.BookingConfig, logger *zerolog.Logger) *AvailabilityService {
	svc := &AvailabilityService{
		store:           store,
		cache:           cache,
		eventBus:        eventBus,
		defaultCapacity: cfg.DefaultCapacity,
		cacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
		storeTimeout:    time.Duration(cfg.StoreTimeoutMS) * time.Millisecond,
		logger:          logger,
	}
	if svc.defaultCapacity <= 0 {
		svc.defaultCapacity = models.DefaultSlotCapacity
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = models.AvailabilityCacheTTL
	}
	if svc.storeTimeout <= 0 {
		svc.storeTimeout = models.StoreOpTimeout
	}
	return svc
}

// GetAvailability returns the daily view for (hubID, date), cache-aside: a
// hit is returned unmodified, a miss recomputes from the durable stores and
// repopulates the cache.
func (s *AvailabilityService) GetAvailability(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error) {
	if cached := s.cacheGet(ctx, hubID, date); cached != nil {
		metrics.IncCacheHit()
		return cached, nil
	}
	metrics.IncCacheMiss()

	view, err := s.computeAvailability(ctx, hubID, date)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, view)
	return view, nil
}

// GetMultiHubAvailability fans GetAvailability out per hub. Unknown hubs are
// omitted from the result rather than failing the whole call.
func (s *AvailabilityService) GetMultiHubAvailability(ctx context.Context, hubIDs []int64, date string) ([]*models.DailyAvailability, error) {
	views := make([]*models.DailyAvailability, 0, len(hubIDs))
	for _, hubID := range hubIDs {
		view, err := s.GetAvailability(ctx, hubID, date)
		if errors.Is(err, database.ErrHubNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AvailabilityService) computeAvailability(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error) {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return nil, err
	}

	labels, dayOff, err := s.effectiveSlots(ctx, hub, date)
	if err != nil {
		return nil, err
	}

	view := &models.DailyAvailability{
		HubID:    hub.ID,
		HubName:  hub.Name,
		Date:     date,
		IsDayOff: dayOff,
		Slots:    []models.SlotAvailability{},
	}
	if dayOff {
		return view, nil
	}

	rows, err := s.store.GetDaySlots(ctx, hubID, date)
	if err != nil {
		return nil, err
	}
	byTime := make(map[string]models.Slot, len(rows))
	for _, row := range rows {
		byTime[row.Time] = row
	}

	for _, label := range labels {
		slot, ok := byTime[label]
		if !ok {
			// No capacity row yet: a never-booked slot defaults.
			slot = models.Slot{Time: label, Capacity: s.defaultCapacity, Booked: 0}
		}
		available := slot.Capacity - slot.Booked
		if available < 0 {
			available = 0
		}
		view.Slots = append(view.Slots, models.SlotAvailability{
			Time:      slot.Time,
			Capacity:  slot.Capacity,
			Booked:    slot.Booked,
			Available: available,
		})
	}
	return view, nil
}

// effectiveSlots resolves the slot list actually offered on the date: the
// override's list when one exists, the hub defaults otherwise.
func (s *AvailabilityService) effectiveSlots(ctx context.Context, hub *models.Hub, date string) ([]string, bool, error) {
	override, err := s.store.GetOverride(ctx, hub.ID, date)
	if err != nil {
		return nil, false, err
	}
	if override == nil {
		return hub.DefaultSlots, false, nil
	}
	if override.IsDayOff {
		return nil, true, nil
	}
	if len(override.Slots) > 0 {
		return override.Slots, false, nil
	}
	return hub.DefaultSlots, false, nil
}

// BookSlot books one slot for the user. Capacity is enforced by the store's
// conditional update, never by a read-then-write at this layer.
func (s *AvailabilityService) BookSlot(ctx context.Context, hubID int64, date, slot string, userID int64) (*models.Appointment, error) {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return nil, err
	}

	labels, dayOff, err := s.effectiveSlots(ctx, hub, date)
	if err != nil {
		return nil, err
	}
	if dayOff {
		return nil, database.ErrDayOff
	}
	if !containsLabel(labels, slot) {
		return nil, database.ErrSlotNotOffered
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	// Insert-if-absent so concurrent first bookings converge on one record.
	if err := s.store.SeedDaySlots(ctx, hubID, date, labels, s.defaultCapacity); err != nil {
		return nil, err
	}

	appointment, err := s.store.BookSlot(ctx, hubID, date, slot, userID)
	if err != nil {
		if errors.Is(err, database.ErrSlotFull) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}
	metrics.IncBooking()

	s.invalidate(ctx, hubID, date)
	s.publishEvent(events.EventSlotBooked, events.BookingEventPayload{
		Ref:      appointment.Ref,
		UserID:   userID,
		HubID:    hubID,
		HubName:  hub.Name,
		Date:     date,
		SlotTime: slot,
		Status:   appointment.Status,
	})
	return appointment, nil
}

// CancelBooking cancels the user's active appointment for the slot and
// releases its capacity. The appointment record is kept.
func (s *AvailabilityService) CancelBooking(ctx context.Context, hubID int64, date, slot string, userID int64) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.CancelBooking(ctx, hubID, date, slot, userID); err != nil {
		return err
	}

	s.invalidate(ctx, hubID, date)
	s.publishEvent(events.EventBookingCancelled, events.BookingEventPayload{
		UserID:   userID,
		HubID:    hubID,
		HubName:  hub.Name,
		Date:     date,
		SlotTime: slot,
		Status:   models.StatusCancelled,
	})
	return nil
}

// MarkDayOff closes the date for the hub. Idempotent.
func (s *AvailabilityService) MarkDayOff(ctx context.Context, hubID int64, date string) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err = s.store.UpsertOverride(ctx, &models.ScheduleOverride{
		HubID:    hubID,
		Date:     date,
		IsDayOff: true,
		Slots:    []string{},
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hubID, date)
	s.publishEvent(events.EventDayClosed, events.BookingEventPayload{HubID: hubID, HubName: hub.Name, Date: date})
	return nil
}

// MarkDayOpen reopens the date with the hub's default slots, keeping booked
// counts of labels that persist.
func (s *AvailabilityService) MarkDayOpen(ctx context.Context, hubID int64, date string) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}
	return s.applyDaySlots(ctx, hub, date, hub.DefaultSlots, events.EventDayOpened)
}

// UpdateDaySlots replaces the date's offered slots with a custom list,
// keeping booked counts of labels that persist. Dropping a slot that still
// has active bookings is rejected.
func (s *AvailabilityService) UpdateDaySlots(ctx context.Context, hubID int64, date string, slots []string) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}
	if err := validateSlotLabels(slots); err != nil {
		return err
	}
	return s.applyDaySlots(ctx, hub, date, slots, events.EventSlotsUpdated)
}

func (s *AvailabilityService) applyDaySlots(ctx context.Context, hub *models.Hub, date string, slots []string, eventType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	// The override and the capacity rows move together: a rejected update
	// must not leave the schedule pointing at a slot list the capacity
	// records never adopted.
	if err := s.store.ApplyDaySchedule(ctx, hub.ID, date, slots, s.defaultCapacity); err != nil {
		return err
	}

	s.invalidate(ctx, hub.ID, date)
	s.publishEvent(eventType, events.BookingEventPayload{HubID: hub.ID, HubName: hub.Name, Date: date})
	return nil
}

// SetSlotCapacity is the admin capacity-edit path for a single slot.
func (s *AvailabilityService) SetSlotCapacity(ctx context.Context, hubID int64, date, slot string, capacity int) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}
	if capacity < 0 {
		return fmt.Errorf("capacity must be non-negative")
	}

	labels, dayOff, err := s.effectiveSlots(ctx, hub, date)
	if err != nil {
		return err
	}
	if dayOff {
		return database.ErrDayOff
	}
	if !containsLabel(labels, slot) {
		return database.ErrSlotNotOffered
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.SeedDaySlots(ctx, hubID, date, labels, s.defaultCapacity); err != nil {
		return err
	}
	if err := s.store.SetSlotCapacity(ctx, hubID, date, slot, capacity); err != nil {
		return err
	}

	s.invalidate(ctx, hubID, date)
	return nil
}

// PreGenerate materializes capacity records for every open date in the
// inclusive range. Existing records are never touched, so running it over a
// range with live bookings is safe.
func (s *AvailabilityService) PreGenerate(ctx context.Context, hubID int64, startDate, endDate string) error {
	hub, err := s.store.GetHub(hubID)
	if err != nil {
		return err
	}

	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return fmt.Errorf("invalid start date %s: %w", startDate, database.ErrInvalidDate)
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return fmt.Errorf("invalid end date %s: %w", endDate, database.ErrInvalidDate)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s before start date %s", endDate, startDate)
	}
	if int(end.Sub(start).Hours()/24) > models.MaxProvisionDays {
		return fmt.Errorf("range exceeds %d days", models.MaxProvisionDays)
	}

	generated := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateLayout)

		exists, err := s.store.HasDaySlots(ctx, hubID, date)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		labels, dayOff, err := s.effectiveSlots(ctx, hub, date)
		if err != nil {
			return err
		}
		if dayOff || len(labels) == 0 {
			continue
		}

		if err := s.store.SeedDaySlots(ctx, hubID, date, labels, s.defaultCapacity); err != nil {
			return err
		}
		generated++
	}

	if generated > 0 {
		s.invalidateHub(ctx, hubID)
		s.publishEvent(events.EventDayProvisioned, events.BookingEventPayload{HubID: hubID, HubName: hub.Name, Date: startDate})
	}
	s.logger.Info().Int64("hub_id", hubID).Str("start", startDate).Str("end", endDate).
		Int("generated", generated).Msg("pre-generation run finished")
	return nil
}

// GetUserAppointments exposes a user's booking history to the boundary.
func (s *AvailabilityService) GetUserAppointments(ctx context.Context, userID int64) ([]*models.Appointment, error) {
	return s.store.GetUserAppointments(ctx, userID)
}

// GetHubs exposes the hub catalog to the boundary.
func (s *AvailabilityService) GetHubs() []*models.Hub {
	return s.store.GetHubs()
}

func (s *AvailabilityService) cacheGet(ctx context.Context, hubID int64, date string) *models.DailyAvailability {
	view, err := s.cache.Get(ctx, hubID, date)
	if err != nil {
		s.logger.Warn().Err(err).Int64("hub_id", hubID).Str("date", date).Msg("cache get failed")
		return nil
	}
	return view
}

func (s *AvailabilityService) cacheSet(ctx context.Context, view *models.DailyAvailability) {
	if err := s.cache.Set(ctx, view, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Int64("hub_id", view.HubID).Str("date", view.Date).Msg("cache set failed")
	}
}

func (s *AvailabilityService) invalidate(ctx context.Context, hubID int64, date string) {
	if err := s.cache.Invalidate(ctx, hubID, date); err != nil {
		s.logger.Warn().Err(err).Int64("hub_id", hubID).Str("date", date).Msg("cache invalidate failed")
	}
}

func (s *AvailabilityService) invalidateHub(ctx context.Context, hubID int64) {
	if err := s.cache.InvalidateHub(ctx, hubID); err != nil {
		s.logger.Warn().Err(err).Int64("hub_id", hubID).Msg("cache hub invalidate failed")
	}
}

func (s *AvailabilityService) publishEvent(eventType string, payload events.BookingEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func containsLabel(labels []string, slot string) bool {
	for _, label := range labels {
		if label == slot {
			return true
		}
	}
	return false
}

func validateSlotLabels(slots []string) error {
	if len(slots) == 0 {
		return fmt.Errorf("slots list is empty")
	}
	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if !models.ValidSlotLabel(slot) {
			return fmt.Errorf("slot %q: %w", slot, database.ErrInvalidSlotLabel)
		}
		if seen[slot] {
			return fmt.Errorf("duplicate slot %q", slot)
		}
		seen[slot] = true
	}
	return nil
}
