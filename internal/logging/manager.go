package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Компоненты voxel-core
const (
	ComponentCodec       = "codec"
	ComponentTransaction = "transaction"
	ComponentBake        = "bake"
	ComponentGenerator   = "generator"
	ComponentTool        = "voxtool"
)

// LoggerManager хранит по одному логгеру на компонент.
// Логгер создаётся при первом обращении с текущими настройками Configure.
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger никогда не возвращает nil: если файл логов не создаётся,
// компонент пишет только в stderr
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	fallback := NewWriterLogger(component, os.Stderr, INFO)
	fallback.Warn("Файл логов недоступен: %v", err)

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if existing, ok := lm.loggers[component]; ok {
		return existing
	}
	lm.loggers[component] = fallback
	return fallback
}

// SetLogLevel меняет пороги уже созданного логгера компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	logger, ok := lm.loggers[component]
	lm.mu.Unlock()

	if !ok {
		return fmt.Errorf("logger for component %s not found", component)
	}
	logger.setLevels(consoleLevel, fileLevel)
	return nil
}

// SetConsoleLevel меняет порог консоли у всех созданных логгеров
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, logger := range lm.loggers {
		logger.mu.Lock()
		logger.minConsoleLevel = level
		logger.mu.Unlock()
	}
}

// ListComponents возвращает отсортированный список компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetCodecLogger() *Logger       { return GetComponentLogger(ComponentCodec) }
func GetTransactionLogger() *Logger { return GetComponentLogger(ComponentTransaction) }
func GetBakeLogger() *Logger        { return GetComponentLogger(ComponentBake) }
func GetGeneratorLogger() *Logger   { return GetComponentLogger(ComponentGenerator) }
func GetToolLogger() *Logger        { return GetComponentLogger(ComponentTool) }
