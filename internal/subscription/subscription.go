// Package subscription реализует движок жизненного цикла подписки:
// проверку полей, значения по умолчанию и вычисление даты продления и статуса.
//
// Пакет не зависит от хранилища: Build - чистая функция от входных данных,
// владельца и текущего момента времени.
package subscription

import "time"

// Статусы подписки.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Периоды оплаты.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Значения по умолчанию.
const (
	DefaultCurrency  = "USD"
	DefaultFrequency = FrequencyMonthly
	DefaultStatus    = StatusActive
)

// Currencies - допустимые коды валют.
var Currencies = []string{"USD", "EUR", "GBP", "TRY"}

// Categories - закрытый список категорий.
var Categories = []string{
	"sports",
	"news",
	"entertainment",
	"finance",
	"lifestyle",
	"politics",
	"weather",
	"health",
	"science",
	"technology",
	"other",
}

// periodDays - длина периода оплаты в календарных днях.
var periodDays = map[string]int{
	FrequencyDaily:   1,
	FrequencyWeekly:  7,
	FrequencyMonthly: 30,
	FrequencyYearly:  365,
}

// PeriodDays возвращает длину периода в днях и признак того, что период известен.
func PeriodDays(frequency string) (int, bool) {
	days, ok := periodDays[frequency]
	return days, ok
}

// RenewalDate вычисляет дату продления: startDate + period(frequency) календарных дней.
func RenewalDate(startDate time.Time, frequency string) time.Time {
	return startDate.AddDate(0, 0, periodDays[frequency])
}
