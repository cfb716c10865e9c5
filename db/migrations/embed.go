package migrations

import "embed"

// UpFiles 内嵌全部 up 迁移脚本，供 internal/migrations 使用。
//
//go:embed *.up.sql
var UpFiles embed.FS
