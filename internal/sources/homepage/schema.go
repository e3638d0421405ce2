package homepage

// ServicesConfig is the root of a Homepage services.yaml: a sequence of
// groups, each a sequence of one-key maps from service name to its props.
// Group and service names are map keys, so order comes from sortedKeys.
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps keeps only what becomes part of a bookmark. Widgets, pings and
// monitors are ignored by the decoder.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}
