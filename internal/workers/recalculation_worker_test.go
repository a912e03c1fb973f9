package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"obsp_backend/internal/events"
	"obsp_backend/internal/models"
	"obsp_backend/internal/services/dto"
)

// blockingEligibilityStub держит пересчет открытым, пока тест
// не отпустит release: так проверяется схлопывание событий
type blockingEligibilityStub struct {
	started chan string
	release chan struct{}

	mu           sync.Mutex
	recalculated int
	perTemplate  int
}

func newBlockingStub() *blockingEligibilityStub {
	return &blockingEligibilityStub{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (s *blockingEligibilityStub) notifyStarted(freelancerID string) {
	select {
	case s.started <- freelancerID:
	default:
	}
}

func (s *blockingEligibilityStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recalculated + s.perTemplate
}

func (s *blockingEligibilityStub) CalculateAndStore(_ context.Context, _ *gorm.DB, freelancerID, _ string) (*models.EligibilityRecord, error) {
	s.mu.Lock()
	s.perTemplate++
	s.mu.Unlock()
	s.notifyStarted(freelancerID)
	<-s.release
	return &models.EligibilityRecord{}, nil
}

func (s *blockingEligibilityStub) GetOrCreate(_ context.Context, _ *gorm.DB, _, _ string) (*models.EligibilityRecord, error) {
	return nil, nil
}

func (s *blockingEligibilityStub) GetSummary(_ context.Context, _ *gorm.DB, _ string) (*models.EligibilitySummary, error) {
	return nil, nil
}

func (s *blockingEligibilityStub) RecalculateFreelancer(_ context.Context, _ *gorm.DB, freelancerID string) error {
	s.mu.Lock()
	s.recalculated++
	s.mu.Unlock()
	s.notifyStarted(freelancerID)
	<-s.release
	return nil
}

func (s *blockingEligibilityStub) RecalculateAll(_ context.Context, _ *gorm.DB, _ int) (*dto.BatchRecalculateResult, error) {
	return nil, nil
}

func TestWorkerCollapsesInFlightFreelancer(t *testing.T) {
	bus := events.NewBus(16)
	stub := newBlockingStub()
	worker := NewRecalculationWorker(nil, bus, stub, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.True(t, bus.Publish(events.Event{Type: events.FeedbackReceived, FreelancerID: "fr-1"}))

	select {
	case <-stub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first recalculation never started")
	}

	// Пока первый пересчет fr-1 идет, повторное событие схлопывается
	require.True(t, bus.Publish(events.Event{Type: events.ProjectCompleted, FreelancerID: "fr-1"}))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, stub.calls())

	close(stub.release)

	// После завершения пересчета следующее событие обрабатывается снова
	require.Eventually(t, func() bool {
		bus.Publish(events.Event{Type: events.FeedbackReceived, FreelancerID: "fr-1"})
		return stub.calls() >= 2
	}, 2*time.Second, 20*time.Millisecond)

	bus.Close()
	worker.Wait()
}

func TestWorkerUsesTemplateScopedRecalculation(t *testing.T) {
	bus := events.NewBus(16)
	stub := newBlockingStub()
	close(stub.release)
	worker := NewRecalculationWorker(nil, bus, stub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	// Событие с template_id делает точечный пересчет одного шаблона
	require.True(t, bus.Publish(events.Event{
		Type:         events.EngagementCompleted,
		FreelancerID: "fr-1",
		TemplateID:   "tpl-1",
	}))

	require.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.perTemplate == 1 && stub.recalculated == 0
	}, 2*time.Second, 20*time.Millisecond)

	bus.Close()
	worker.Wait()
}
