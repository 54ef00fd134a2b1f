package core

// Categories is the suggested set offered by the form. It is not a closed
// set: any non-empty category is accepted.
var Categories = []string{
	"Food",
	"Transport",
	"Entertainment",
	"Bills",
	"Shopping",
	"Housing",
	"Health",
	"Education",
	"Other",
}

// IsSuggestedCategory reports whether name belongs to Categories.
func IsSuggestedCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
