// Package telemetry — структурированное логирование и метрики.
//
// Логирование настраивается переменными окружения LOG_LEVEL и LOG_FORMAT.
// Метрики собираются в отдельный prometheus.Registry и по завершении
// запуска выгружаются текстовым файлом у корня выходного каталога
// (паттерн textfile collector: у одноразового batch-процесса нет
// долгоживущего HTTP-эндпоинта для scrape).
package telemetry
