package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Timeline: TimelineColors{
		Visit:    "87",
		Path:     "225",
		Thinking: "229",
		Unnamed:  "250",
	},
	Map: MapColors{
		Visit:    "46",
		Path:     "159",
		Selected: "226",
		Grid:     "244",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		Breadcrumb:   "195",
		SelectedItem: "51",
		Scrollbar:    "252",
	},
	Borders: BorderColors{
		ActivePane:   "231",
		InactivePane: "250",
		Divider:      "248",
	},
}
