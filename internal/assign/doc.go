// Package assign реализует стадию назначения прокси credentials:
// жадное потребление валидированных кандидатов с начала списка,
// ограниченное число прокси на credential, персистентные привязки
// (insert-if-absent) и отчёт о прокси с проваленными пробами.
package assign
