package workers

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"obsp_backend/internal/events"
	"obsp_backend/internal/logger"
	"obsp_backend/internal/services"
)

// RecalculationWorker - consumer шины доменных событий: каждое событие
// приводит к пересчету eligibility затронутого фрилансера.
//
// Защита от рекурсии: фрилансер, уже находящийся в обработке,
// не ставится в обработку повторно - событие, порожденное самим
// пересчетом, схлопывается в уже идущий.
type RecalculationWorker struct {
	db          *gorm.DB
	bus         *events.Bus
	eligibility services.EligibilityService
	workers     int

	mu       sync.Mutex
	inFlight map[string]bool

	wg sync.WaitGroup
}

func NewRecalculationWorker(db *gorm.DB, bus *events.Bus, eligibility services.EligibilityService, workers int) *RecalculationWorker {
	if workers <= 0 {
		workers = 1
	}
	return &RecalculationWorker{
		db:          db,
		bus:         bus,
		eligibility: eligibility,
		workers:     workers,
		inFlight:    make(map[string]bool),
	}
}

// Start запускает пул consumers. Останавливается закрытием шины
// или отменой контекста.
func (w *RecalculationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	logger.Info("recalculation worker started", "workers", w.workers)
}

// Wait блокируется до завершения всех consumers
func (w *RecalculationWorker) Wait() {
	w.wg.Wait()
}

func (w *RecalculationWorker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.bus.Events():
			if !ok {
				return
			}
			w.handle(ctx, event)
		}
	}
}

func (w *RecalculationWorker) handle(ctx context.Context, event events.Event) {
	if event.FreelancerID == "" {
		return
	}

	w.mu.Lock()
	if w.inFlight[event.FreelancerID] {
		w.mu.Unlock()
		logger.Debug("recalculation already in flight, collapsing event",
			"freelancer_id", event.FreelancerID,
			"type", string(event.Type))
		return
	}
	w.inFlight[event.FreelancerID] = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inFlight, event.FreelancerID)
		w.mu.Unlock()
	}()

	var err error
	if event.TemplateID != "" {
		// Событие привязано к шаблону - хватает точечного пересчета
		_, err = w.eligibility.CalculateAndStore(ctx, w.db, event.FreelancerID, event.TemplateID)
	} else {
		err = w.eligibility.RecalculateFreelancer(ctx, w.db, event.FreelancerID)
	}

	if err != nil {
		logger.WorkerLog("recalculation", string(event.Type), err)
		return
	}
	logger.Debug("eligibility recalculated from event",
		"freelancer_id", event.FreelancerID,
		"type", string(event.Type))
}
