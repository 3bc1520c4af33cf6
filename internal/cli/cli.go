// Package cli holds the interactive prompts used by the -interactive mode.
package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"postsync/internal/model"
)

// PickMembers presents a multi-select of members and returns the chosen
// subset. All members are preselected.
func PickMembers(members []model.Member) ([]model.Member, error) {
	options := make([]string, len(members))
	defaults := make([]string, len(members))
	for i, m := range members {
		options[i] = fmt.Sprintf("%s (%s)", m.Name, m.Username)
		defaults[i] = options[i]
	}

	var selected []string
	q := &survey.MultiSelect{
		Message: "Select members to sync (Space to toggle, Enter to confirm):",
		Options: options,
		Default: defaults,
	}
	if err := survey.AskOne(q, &selected); err != nil {
		return nil, err
	}

	var result []model.Member
	for _, sel := range selected {
		for i, opt := range options {
			if sel == opt {
				result = append(result, members[i])
				break
			}
		}
	}
	return result, nil
}

// Confirm asks a yes/no question.
func Confirm(prompt string, defaultYes bool) (bool, error) {
	var result bool
	q := &survey.Confirm{Message: prompt, Default: defaultYes}
	return result, survey.AskOne(q, &result)
}
