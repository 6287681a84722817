// Package scheduler управляет запуском работы во времени.
//
// Структура:
//   - stagger.go — ступенчатый запуск юнитов батча с фиксированной
//     паузой между стартами и общим ожиданием завершения
//   - cron.go    — парсинг cron-выражений и вычисление времени
//     следующего полного запуска (patrol-scheduler)
//
// Ступенчатый запуск дросселирует только ЧАСТОТУ стартов, не общее
// число одновременных юнитов: ранее стартовавшие продолжают работать,
// пока запускаются новые. Это сознательный размен — не обрушивать
// login-endpoint сервиса одновременными первыми контактами, позволяя
// долгим check'ам перекрываться. Если когда-нибудь понадобится
// жёсткий потолок конкурентности, ступенчатый цикл заменяется пулом
// фиксированного размера с delay-gated очередью допуска.
package scheduler
