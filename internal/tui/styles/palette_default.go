package styles

// DefaultTheme is the baseline dark palette for the arcmini TUI.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Timeline: TimelineColors{
		Visit:    "81",
		Path:     "147",
		Thinking: "214",
		Unnamed:  "243",
	},
	Map: MapColors{
		Visit:    "41",
		Path:     "110",
		Selected: "220",
		Grid:     "238",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		Breadcrumb:   "109",
		SelectedItem: "75",
		Scrollbar:    "246",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
}
