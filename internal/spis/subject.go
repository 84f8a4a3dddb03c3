package spis

import "strings"

// Subject is one school subject from the fixed catalog. The first emoji
// is the default, the rest are alternates selectable through styles.
// Snapshots store only the Code.
type Subject struct {
	Code  string
	Name  string
	Emoji []string
}

func (s Subject) DefaultEmoji() string {
	if len(s.Emoji) == 0 {
		return ""
	}
	return s.Emoji[0]
}

func (s Subject) IsZero() bool { return s.Code == "" }

// Subjects is the compile-time subject catalog. Adjusting the tracked
// class's plan means editing only this table.
var Subjects = []Subject{
	{Code: "ang", Name: "Angielski", Emoji: []string{"🇬🇧", "🇺🇸"}},
	{Code: "pol", Name: "Polski", Emoji: []string{"🇵🇱"}},
	{Code: "mat", Name: "Matematyka", Emoji: []string{"🧮", "📏", "🔢", "🔠"}},
	{Code: "rel", Name: "Religia", Emoji: []string{"✝"}},
	{Code: "inf", Name: "Informatyka", Emoji: []string{"🖥️", "💻"}},
	{Code: "niem", Name: "Niemiecki", Emoji: []string{"🇩🇪"}},
	{Code: "wf", Name: "WF", Emoji: []string{"⚽", "🥅", "🤾‍", "🏀"}},
	{Code: "hist", Name: "Historia", Emoji: []string{"🏰"}},
	{Code: "gw", Name: "Godzina wychowawcza", Emoji: []string{"✏️"}},
	{Code: "chem", Name: "Chemia", Emoji: []string{"🧪", "🧑‍🔬"}},
	{Code: "fiz", Name: "Fizyka", Emoji: []string{"🛰️", "🔌"}},
	{Code: "pp", Name: "Przedsiębiorczość", Emoji: []string{"💰"}},
	{Code: "bio", Name: "Biologia", Emoji: []string{"🐟", "🍃"}},
	{Code: "geo", Name: "Geografia", Emoji: []string{"🌍"}},
}

// SubjectByCode resolves the compact identifier used in snapshots.
func SubjectByCode(code string) (Subject, bool) {
	for _, s := range Subjects {
		if s.Code == code {
			return s, true
		}
	}
	return Subject{}, false
}

// SubjectByName matches user input against codes and display names,
// case-insensitively.
func SubjectByName(name string) (Subject, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Subjects {
		if strings.ToLower(s.Code) == name || strings.ToLower(s.Name) == name {
			return s, true
		}
	}
	return Subject{}, false
}
