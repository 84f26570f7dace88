package speech

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vendroute/packing-player/internal/domain"
)

// Catalog holds the spoken phrase templates. Machine phrases are
// fmt.Sprintf templates; the first %s is the machine designator, the
// second (when present) the location name.
type Catalog struct {
	MachineCompleteAt string `yaml:"machineCompleteAt"`
	MachineComplete   string `yaml:"machineComplete"`
	SessionComplete   string `yaml:"sessionComplete"`
}

// DefaultCatalog returns the stock English phrases.
func DefaultCatalog() *Catalog {
	return &Catalog{
		MachineCompleteAt: "%s complete at %s.",
		MachineComplete:   "%s complete.",
		SessionComplete:   "Packing complete. All items have been resolved.",
	}
}

// LoadCatalog reads phrase overrides from a YAML file. An empty path
// returns the defaults; keys missing from the file keep their default.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("failed to parse phrase catalog: %w", err)
	}
	return catalog, nil
}

// Formatter adapts the catalog to the session's announcement formatter.
func (c *Catalog) Formatter() domain.AnnouncementFormatter {
	return func(designator, locationName string) string {
		if locationName == "" {
			return fmt.Sprintf(c.MachineComplete, designator)
		}
		return fmt.Sprintf(c.MachineCompleteAt, designator, locationName)
	}
}

// SessionConfig builds the domain session config from the catalog.
func (c *Catalog) SessionConfig() *domain.SessionConfig {
	return &domain.SessionConfig{
		AnnouncementFormatter: c.Formatter(),
		SessionCompletePhrase: c.SessionComplete,
	}
}
