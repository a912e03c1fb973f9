package apperrors

import (
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для ошибок бизнес-логики: eligibility, назначения, вехи.
*/

// =========================================================================
// Фабричные ФУНКЦИИ (оборачивание ошибок репозиториев)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Eligibility
// =========================================================================

// ErrCriteriaNotConfigured - для (template, tier) нет настроенных критериев.
// Evaluator переживает это как нулевой sub-score, но API отдает 404.
func ErrCriteriaNotConfigured(err error) *AppError {
	return Wrap(err, CodeCriteriaNotConfigured, "eligibility",
		"Eligibility criteria are not configured for this template tier", http.StatusNotFound)
}

var ErrEligibilityRecordNotFound = New(
	CodeNotFound, "eligibility",
	"Eligibility record not found", http.StatusNotFound,
)

// =========================================================================
// Назначения (assignment lifecycle)
// =========================================================================

// ErrAlreadyAssigned - второй вызов assign() для той же пары
// (response, freelancer) проиграл гонку на уникальном индексе.
func ErrAlreadyAssigned(err error) *AppError {
	return Wrap(err, CodeConcurrencyConflict, "assignment",
		"Freelancer is already assigned to this response", http.StatusConflict)
}

// ErrInvalidTransition - переход состояния, который машина не допускает.
// Никаких мутаций при этом не происходит.
func ErrInvalidTransition(from, to string) *AppError {
	return New(CodeInvalidStateTransition, "assignment",
		"Cannot transition assignment from '"+from+"' to '"+to+"'", http.StatusConflict)
}

var ErrAssignmentNotFound = New(
	CodeNotFound, "assignment",
	"Assignment not found", http.StatusNotFound,
)

var ErrResponseNotFound = New(
	CodeNotFound, "assignment",
	"Template response not found", http.StatusNotFound,
)

// =========================================================================
// Вехи (milestones)
// =========================================================================

var ErrMilestoneNotFound = New(
	CodeNotFound, "milestone",
	"Milestone not found", http.StatusNotFound,
)

// ErrPayoutSumInvalid - проценты выплат по вехам уровня не сходятся к 100.
// Блокирует публикацию шаблона.
func ErrPayoutSumInvalid(domain string, sum float64) *AppError {
	return New(CodePayoutSumInvalid, domain,
		"Milestone payout percentages must sum to 100", http.StatusBadRequest).
		WithDetails(map[string]float64{"actual_sum": sum})
}
