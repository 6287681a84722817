// Package prober реализует Validator Pool — параллельную проверку
// доступности фиксированной цели через прокси-кандидаты.
//
// Вход разбивается на чанки (default: 10), каждый чанк проверяется
// отдельной горутиной. Результат — по одному ProbeResult на прокси,
// порядок не гарантируется. Результаты записываются в хранилище
// (таблица proxy_probe_results, перезапись целиком) только после
// того, как собран полный набор.
package prober
