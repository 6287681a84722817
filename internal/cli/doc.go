// Package cli реализует инструмент командной строки Patrol.
//
// # Обзор
//
// CLI работает напрямую с embedded-хранилищем (HTTP-прослойки у
// системы нет): открывает базу, выполняет стадию и печатает результат.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// ## Commands
//
// Команды соответствуют стадиям конвейера:
//   - validate: проверка прокси-кандидатов и запись probe-результатов
//   - assign:   привязка credentials к валидированным прокси
//   - run:      полный прогон батча (validate → assign → orchestrate)
//   - status:   сводка таблицы tasks по состояниям или по сервису
//
// Каждая команда создаётся через фабричную функцию (NewValidateCmd
// и т.д.), принимающую dbFn и outputFn — замыкания для ленивого
// чтения PersistentFlags.
package cli
