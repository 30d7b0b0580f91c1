package wizard

import "github.com/charmbracelet/huh"

// SiteOption represents a Grid'5000 site.
type SiteOption struct {
	Value       string
	Label       string
	Description string
}

// Sites lists the Grid'5000 sites offered by the wizard.
var Sites = []SiteOption{
	{Value: "nancy", Label: "nancy", Description: "Nancy, Lorraine"},
	{Value: "rennes", Label: "rennes", Description: "Rennes, Brittany"},
	{Value: "lyon", Label: "lyon", Description: "Lyon, Rhône"},
	{Value: "lille", Label: "lille", Description: "Lille, Hauts-de-France"},
	{Value: "grenoble", Label: "grenoble", Description: "Grenoble, Isère"},
	{Value: "luxembourg", Label: "luxembourg", Description: "Luxembourg"},
	{Value: "nantes", Label: "nantes", Description: "Nantes, Loire-Atlantique"},
	{Value: "sophia", Label: "sophia", Description: "Sophia Antipolis, Alpes-Maritimes"},
	{Value: "toulouse", Label: "toulouse", Description: "Toulouse, Haute-Garonne"},
}

// RemainderOptions are the policies for nodes that do not divide evenly.
var RemainderOptions = []huh.Option[string]{
	huh.NewOption("spread - first hosts get one extra node", "spread"),
	huh.NewOption("drop - equal share per host, leftovers dropped", "drop"),
}

// SitesToOptions converts Sites to huh select options.
func SitesToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(Sites))
	for i, s := range Sites {
		opts[i] = huh.NewOption(s.Label+" - "+s.Description, s.Value)
	}
	return opts
}
