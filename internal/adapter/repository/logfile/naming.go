package logfile

import (
	"regexp"
	"strings"

	"github.com/V4T54L/safelog/internal/domain"
)

const (
	GeneralPrefix  = "app"
	ErrorPrefix    = "error"
	WarnPrefix     = "warn"
	SecurityPrefix = "security"

	fileSuffix = ".log"
)

var logFileName = regexp.MustCompile(`^(app|error|warn|security)-\d{4}-\d{2}-\d{2}\.log$`)

// GeneralFile names the file that receives every entry for date.
func GeneralFile(date string) string {
	return fileName(GeneralPrefix, date)
}

// LevelFile names the severity-specific file for level. Only ERROR and WARN
// have one.
func LevelFile(level domain.Level, date string) (string, bool) {
	switch level {
	case domain.LevelError:
		return fileName(ErrorPrefix, date), true
	case domain.LevelWarn:
		return fileName(WarnPrefix, date), true
	}
	return "", false
}

// SecurityFile names the dedicated security event file for date.
func SecurityFile(date string) string {
	return fileName(SecurityPrefix, date)
}

// IsLogFile reports whether name follows the <kind>-<YYYY-MM-DD>.log convention.
func IsLogFile(name string) bool {
	return logFileName.MatchString(name)
}

// fileKind returns the prefix of a log file name, used as a metric label.
func fileKind(name string) string {
	if i := strings.IndexByte(name, '-'); i > 0 {
		return name[:i]
	}
	return "other"
}

// fileDate returns the date part of a log file name or "".
func fileDate(name string) string {
	if !IsLogFile(name) {
		return ""
	}
	trimmed := strings.TrimSuffix(name, fileSuffix)
	return trimmed[len(trimmed)-len("2006-01-02"):]
}

func fileName(prefix, date string) string {
	return prefix + "-" + date + fileSuffix
}
