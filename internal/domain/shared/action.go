package shared

// ActionKey identifies an action a viewer can take on a loan or quote request
type ActionKey string

// String returns the string representation of the action key
func (k ActionKey) String() string {
	return string(k)
}

// Tone is a presentation hint attached to an action
type Tone string

const (
	ToneDefault Tone = "default"
	// ToneDanger marks destructive actions. They only run after an explicit confirmation.
	ToneDanger Tone = "danger"
)

// Action is one entry of an action menu
type Action struct {
	Key   ActionKey `json:"key"`
	Label string    `json:"label"`
	Tone  Tone      `json:"tone"`
}

// RequiresConfirmation reports whether the action needs a confirmation step
func (a Action) RequiresConfirmation() bool {
	return a.Tone == ToneDanger
}

// IsView reports whether the action only opens the entity without side effects
func (a Action) IsView() bool {
	return a.Key == "view" || a.Key == "view_offer" || a.Key == "view_quote"
}

// FindAction looks up an action by key in an ordered menu
func FindAction(actions []Action, key ActionKey) (Action, bool) {
	for _, a := range actions {
		if a.Key == key {
			return a, true
		}
	}
	return Action{}, false
}

// MergeActions appends the actions of each menu in order, skipping keys already seen
func MergeActions(menus ...[]Action) []Action {
	seen := make(map[ActionKey]struct{})
	merged := make([]Action, 0)
	for _, menu := range menus {
		for _, a := range menu {
			if _, ok := seen[a.Key]; ok {
				continue
			}
			seen[a.Key] = struct{}{}
			merged = append(merged, a)
		}
	}
	return merged
}

// Labels returns the labels of the actions in order
func Labels(actions []Action) []string {
	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = a.Label
	}
	return labels
}
