// Package orchestrator ведёт машину состояний обработки пар
// (credential, proxy) для сервисов.
//
// Состояния task: PENDING → SUCCESS | FAILED. Терминальные задачи
// пропускаются без повторной верификации. Внутри пары порядок строгий:
// login (с ограниченным числом попыток) → один check → запись
// состояния. Явный отказ терминален и попадает в журнал отказов;
// инфраструктурный сбой оставляет task в PENDING для следующего
// полного запуска.
package orchestrator
