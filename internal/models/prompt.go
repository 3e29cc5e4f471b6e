package models

import (
	"regexp"
	"sort"
	"time"
)

// Prompt categories the engine treats specially. Any other category string is
// a regular weighted category.
const (
	CategoryFamily      = "Family"
	CategoryFriends     = "Friends"
	CategoryRemembering = "Remembering"
	CategoryBirthday    = "Birthday"
	CategoryJournal     = "Journal"
	CategoryCustom      = "Custom"
	CategoryFeatured    = "Featured"
	CategoryFun         = "Fun"
	CategoryDeeper      = "A Bit Deeper"
	CategoryEdgy        = "Edgy/NSFW"
)

// Birthday prompt audiences
const (
	BirthdayYours  = "your_birthday"
	BirthdayTheirs = "their_birthday"
)

// Dynamic variables a prompt may embed as {name} placeholders
const (
	VarMemorialName = "memorial_name"
	VarMemberName   = "member_name"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Prompt is an immutable question template from the catalog
type Prompt struct {
	ID               string
	Question         string
	Description      string
	Category         string
	DynamicVariables []string
	BirthdayType     string // "" unless this is a birthday prompt
	IceBreaker       bool
	IsCustom         bool
	CreatedAt        time.Time
}

// Variables returns the declared dynamic variables together with every
// placeholder found in the question text, sorted and without duplicates
func (p Prompt) Variables() []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	for _, v := range p.DynamicVariables {
		add(v)
	}
	for _, m := range placeholderPattern.FindAllStringSubmatch(p.Question, -1) {
		add(m[1])
	}
	sort.Strings(vars)
	return vars
}

// UsesVariable reports whether the prompt declares or embeds the variable
func (p Prompt) UsesVariable(name string) bool {
	for _, v := range p.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// IsBirthday reports whether the prompt belongs to the birthday flow
func (p Prompt) IsBirthday() bool {
	return p.BirthdayType != "" || p.Category == CategoryBirthday
}
