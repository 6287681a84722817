package session

import (
	"os"
	"path/filepath"
)

// ExtensionCheck — результат однократной проверки расширений.
//
// Вычисляется один раз при старте процесса (Preflight) и передаётся
// по значению в Factory — процесс-глобального изменяемого кэша
// валидности расширений нет.
type ExtensionCheck struct {
	// Dirs — каталоги расширений, переданные на проверку.
	Dirs []string

	// Valid — true, если каждый каталог существует и содержит manifest.json.
	Valid bool
}

// Preflight проверяет каталоги браузерных расширений.
// Пустой список каталогов валиден: сессии поднимаются без расширений.
func Preflight(dirs []string) ExtensionCheck {
	check := ExtensionCheck{Dirs: dirs, Valid: true}
	for _, dir := range dirs {
		manifest := filepath.Join(dir, "manifest.json")
		if _, err := os.Stat(manifest); err != nil {
			check.Valid = false
			break
		}
	}
	return check
}
