package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Общие ошибки бизнес-логики (используются фабриками)
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и Авторизация (сквозные)
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Доменные коды: eligibility и жизненный цикл назначений
const (
	CodeConcurrencyConflict    ErrorCode = "CONCURRENCY_CONFLICT"
	CodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	CodeNoActiveAssignment     ErrorCode = "NO_ACTIVE_ASSIGNMENT"
	CodeCriteriaNotConfigured  ErrorCode = "CRITERIA_NOT_CONFIGURED"
	CodePayoutSumInvalid       ErrorCode = "PAYOUT_SUM_INVALID"
)
