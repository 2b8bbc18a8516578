package mealplan

import "time"

// Recorder receives aggregation measurements. A nil Recorder is ignored.
type Recorder interface {
	ObserveShoppingList(items int, elapsed time.Duration)
	ObserveDishCalories(ingredients int, elapsed time.Duration)
	ObservePurchaseImport(recorded, skipped int)
}

// Options configure a Service.
type Options struct {
	Recorder Recorder
	// Now overrides the clock used to default purchase timestamps.
	Now func() time.Time
}

// Service implements the planner operations on top of a Store.
type Service struct {
	store    Store
	recorder Recorder
	now      func() time.Time
}

// NewService wires a Service around store.
func NewService(store Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, recorder: opts.Recorder, now: now}
}

func (s *Service) withStore(store Store) *Service {
	return &Service{store: store, recorder: s.recorder, now: s.now}
}
