package scenario

// BuiltIn returns the predefined scenarios. Component IDs 1..10 refer to the
// starter graph: UI, VM, DOMAIN, REPO, CACHE, DB, NET, WORK, OBS, FLAGS.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"layered-baseline": {
			Name:        "layered-baseline",
			Description: "Grow the starter stack layer by layer and keep the backlog short.",
			Steps: []Step{
				{At: 5, Action: "upgrade", Args: Args{"4"}, Note: "repository takes the most traffic"},
				{At: 10, Action: "place", Args: Args{"AUTH"}},
				{At: 12, Action: "link", Args: Args{"3", "11"}},
				{At: 20, Action: "upgrade", Args: Args{"6"}},
				{At: 30, Action: "place", Args: Args{"SANITIZER"}},
				{At: 32, Action: "link", Args: Args{"2", "12"}},
				{At: 45, Action: "fix", Args: Args{"1"}},
				{At: 60, Action: "buy", Args: Args{"refill"}},
				{At: 90, Action: "upgrade", Args: Args{"5"}},
			},
		},
		"upward-shortcut": {
			Name:        "upward-shortcut",
			Description: "Take layering shortcuts under deadline pressure, then pay the debt down.",
			Steps: []Step{
				{At: 3, Action: "link", Args: Args{"6", "1"}, Note: "data layer calls straight into the UI"},
				{At: 6, Action: "link", Args: Args{"1", "4"}, Note: "UI skips the view model and domain"},
				{At: 9, Action: "link", Args: Args{"2", "6"}},
				{At: 20, Action: "refactor", Args: Args{"next", "auto"}},
				{At: 30, Action: "refactor", Args: Args{"next", "MOVE_MAPPING"}},
				{At: 40, Action: "refactor", Args: Args{"next", "auto"}},
			},
		},
		"security-hardening": {
			Name:        "security-hardening",
			Description: "Absorb an attack wave while putting security sidecars in place.",
			Steps: []Step{
				{At: 4, Action: "incident", Args: Args{"CRED_STUFFING"}},
				{At: 6, Action: "place", Args: Args{"AUTH"}},
				{At: 7, Action: "place", Args: Args{"PINNING"}},
				{At: 8, Action: "place", Args: Args{"ABUSE"}},
				{At: 9, Action: "link", Args: Args{"3", "11"}},
				{At: 10, Action: "link", Args: Args{"7", "12"}},
				{At: 40, Action: "incident", Args: Args{"MITM"}},
				{At: 45, Action: "place", Args: Args{"KEYSTORE"}},
				{At: 80, Action: "incident", Args: Args{"TOKEN_THEFT"}},
				{At: 85, Action: "buy", Args: Args{"hire"}},
			},
		},
	}
}
