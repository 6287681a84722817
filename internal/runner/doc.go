// Package runner собирает стадии конвейера в один полный прогон:
// валидация прокси → перезапись probe-результатов → назначение →
// ступенчатая оркестрация всех пар. Каждый прогон получает свой
// run_id; сводка печатается даже при частичных отказах.
package runner
