package backup

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindManual     Kind = "MANUAL"
	KindAutomatico Kind = "AUTOMATICO"
)

type Status string

const (
	StatusExitoso Status = "EXITOSO"
	StatusFallido Status = "FALLIDO"
)

// Entry is one snapshot attempt in the manifest.
type Entry struct {
	ID        string
	Fecha     time.Time
	Kind      Kind
	Archivo   string
	Status    Status
	Registros int64
}

// FileName is the snapshot file name for a given moment.
func FileName(now time.Time) string {
	return fmt.Sprintf("recetas_backup_%s.db", now.Format("20060102_150405"))
}

// ShouldRunAutomatic reports whether an automatic snapshot is due. It is due
// when none has succeeded yet, or when at least one whole day has elapsed
// since the last one.
func ShouldRunAutomatic(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	elapsed := now.Sub(*last)
	return int64(elapsed/(24*time.Hour)) >= 1
}
