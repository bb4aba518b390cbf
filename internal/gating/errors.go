// ABOUTME: Errors returned when a metric toggle request is rejected.
// ABOUTME: Sentinels for rule violations plus a typed permission prompt.
package gating

import (
	"errors"
	"fmt"

	"github.com/harperreed/migraine/internal/models"
)

var (
	ErrUnknownMetric       = errors.New("unknown metric")
	ErrNotTogglable        = errors.New("metric cannot be toggled")
	ErrNoWearableConnected = errors.New("no wearable connected for metric")
	ErrDependencyDisabled  = errors.New("metric depends on a disabled metric")
	ErrSourceNotAllowed    = errors.New("source not allowed for metric")
	ErrSourceNotConnected  = errors.New("source not connected")
)

// PermissionRequiredError is returned when enabling a metric needs an OS
// permission that has not been granted. Settings names the system screen to open.
type PermissionRequiredError struct {
	Metric     string
	Permission models.Permission
	Settings   string
}

func (e *PermissionRequiredError) Error() string {
	return fmt.Sprintf("%s requires the %s permission (grant it in %s)", e.Metric, e.Permission, e.Settings)
}
