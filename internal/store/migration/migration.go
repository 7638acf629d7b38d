// Package migration holds the sqlite schema scripts, applied in lexical order.
package migration

import "embed"

//go:embed *.sql
var Scripts embed.FS
