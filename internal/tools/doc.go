// Package tools — работа с внешними биоинформатическими инструментами.
//
// Toolchain находит исполняемые файлы (PATH или явный каталог),
// Invoker синхронно выполняет построенные этапом команды, пишет весь
// stdout/stderr в журнал запуска и проверяет постусловие: ожидаемые
// выходные файлы существуют и непусты. Содержимое вывода инструментов
// invoker никогда не разбирает — инструменты чёрные ящики.
package tools
