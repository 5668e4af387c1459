package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации в обменнике Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Очередь событий запуска workflow напоминаний.
const (
	ReminderQueue      = "notifications.reminder"
	ReminderRoutingKey = "reminder"
)

// GetReminderQueues возвращает очереди, которые слушает reminder-worker.
func GetReminderQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ReminderQueue, RoutingKey: ReminderRoutingKey},
	}
}
