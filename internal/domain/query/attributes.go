package query

import "regexp"

// Attribute is a named category detected in query text.
type Attribute struct {
	Name     string
	Patterns []*regexp.Regexp
	Terms    []string
}

func attr(name string, terms []string, patterns ...string) Attribute {
	a := Attribute{Name: name, Terms: terms}
	for _, p := range patterns {
		a.Patterns = append(a.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return a
}

// Attributes is the ordered detection table. Iteration order defines the order
// of Parsed.Attributes.
var Attributes = []Attribute{
	attr("female_protagonist", []string{"female", "women", "protagonist"},
		`female protagonist`, `women protagonist`, `female main character`, `heroine`, `strong female character`),
	attr("male_protagonist", []string{"male", "protagonist"},
		`male protagonist`, `male main character`, `hero`),
	attr("author_gender_female", []string{"women", "female"},
		`by (a )?wom[ae]n`, `female author`, `women writer`),
	attr("genre_romance", []string{"love", "romance"},
		`love stor(y|ies)`, `romance`, `romantic`),
	attr("genre_adventure", []string{"adventure"},
		`adventure`, `quest`),
	attr("genre_tragedy", []string{"tragedy", "tragic"},
		`tragic`, `tragedy`, `tragedies`),
	attr("theme_social_injustice", []string{"social", "injustice", "slavery"},
		`social injustice`, `inequality`, `oppression`),
	attr("theme_war", []string{"war"},
		`about war`, `war stories`, `warfare`),
	attr("era_victorian", []string{"victorian", "19th"},
		`victorian`, `19th century`),
}

// Matches reports whether any of the attribute's patterns occur in text.
func (a Attribute) Matches(text string) bool {
	for _, p := range a.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
