package events

import (
	"sync"
	"time"

	"obsp_backend/internal/logger"
)

type EventType string

// Триггеры инвалидации eligibility-снапшотов
const (
	ProjectCompleted     EventType = "project.completed"
	ProjectStatusChanged EventType = "project.status_changed"
	FeedbackReceived     EventType = "feedback.received"
	EngagementCompleted  EventType = "engagement.completed"
)

// Event - доменное событие, ведущее к пересчету eligibility фрилансера.
// TemplateID заполняется, когда событие касается конкретного шаблона
// (завершение OBSP-назначения); пустой означает пересчет по всем.
type Event struct {
	Type         EventType
	FreelancerID string
	TemplateID   string
	OccurredAt   time.Time
}

// Bus - внутрипроцессная шина доменных событий. Публикация не блокирует
// вызывающую транзакцию: при переполненном буфере событие отбрасывается
// с warning-ом, следующий batch-пересчет его догонит.
type Bus struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{ch: make(chan Event, size)}
}

// Publish кладет событие в буфер. Возвращает false, если событие
// отброшено (буфер полон или шина закрыта).
func (b *Bus) Publish(event Event) bool {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}

	select {
	case b.ch <- event:
		return true
	default:
		logger.Warn("event bus buffer full, dropping event",
			"type", string(event.Type),
			"freelancer_id", event.FreelancerID)
		return false
	}
}

// Events - канал для consumers; закрывается вместе с шиной
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Close останавливает прием. Уже опубликованные события
// будут дочитаны consumers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
