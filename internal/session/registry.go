package session

import (
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр драйверов по имени сервиса.
//
// Строится явно при старте процесса; динамической диспетчеризации
// по строке с неявным nil при промахе нет — неизвестный сервис
// возвращает ErrServiceNotFound.
// Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// Register регистрирует драйвер.
// Повторная регистрация сервиса перезаписывает предыдущий драйвер.
func (r *Registry) Register(driver Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[driver.Service()] = driver
}

// Lookup возвращает драйвер сервиса.
// Возвращает ErrServiceNotFound, если драйвер не зарегистрирован.
func (r *Registry) Lookup(service string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, ok := r.drivers[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	return driver, nil
}

// Services возвращает отсортированный список зарегистрированных сервисов.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		services = append(services, name)
	}
	sort.Strings(services)
	return services
}
