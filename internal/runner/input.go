package runner

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadLines читает построчный входной файл (прокси-кандидаты,
// секреты credentials). Пустые строки и строки-комментарии (#)
// пропускаются. Отсутствующий путь — пустой список, не ошибка:
// повторный прогон без входных файлов обрабатывает существующие
// привязки.
func ReadLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	return lines, nil
}
