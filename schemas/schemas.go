package schemas

import "embed"

// SchemasFS содержит JSON-схемы форматов экспорта и публикуемых событий
//
//go:embed exports events
var SchemasFS embed.FS
