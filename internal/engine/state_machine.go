package engine

// State - состояние торгового движка
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
)

// ValidTransitions определяет допустимые переходы между состояниями
var ValidTransitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to State) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s State) string {
	switch s {
	case StateStopped:
		return "Движок остановлен"
	case StateStarting:
		return "Запуск циклов мониторинга..."
	case StateRunning:
		return "Торговля активна"
	case StateStopping:
		return "Остановка, ожидание завершения циклов..."
	default:
		return "Неизвестное состояние"
	}
}

// IsActive возвращает true если движок торгует или запускается
func IsActive(s State) bool {
	return s == StateStarting || s == StateRunning
}
