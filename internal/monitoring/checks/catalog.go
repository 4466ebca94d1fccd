package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/monitoring"
)

// Catalog reports the category catalog. A degraded catalog passes codes through unchecked.
func Catalog(provider *catalog.Provider) monitoring.Check {
	return monitoring.NewCheck("catalog", func(context.Context) monitoring.ProbeResult {
		if provider == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "catalog not configured"}
		}

		status := provider.Status()
		if status.Degraded {
			details := "empty catalog"
			if status.Error != "" {
				details = status.Error
			}
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: details}
		}
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d categories from %s", status.Categories, status.Source),
		}
	})
}
