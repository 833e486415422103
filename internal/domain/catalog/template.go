package catalog

// Template is a static catalog entry describing a themed calendar content
// pack delivered to a paying user.
type Template struct {
	ID          string
	Type        string
	Name        string
	Description string
}

// FallbackType is the template selected when the answer set contributes no
// votes at all (empty set, or every answer absent from the vote table).
const FallbackType = "quotes"

// Templates is the fixed 7-entry catalog, read-only for the lifetime of the
// process.
var Templates = []Template{
	{
		ID:          "01d538ee-7a4d-48c9-a7ae-ca1efe484a31",
		Type:        "home_gym",
		Name:        "Home Gym",
		Description: "Home workout routines and fitness tips",
	},
	{
		ID:          "0a94e00e-1310-4029-aed9-03bf675eb4e1",
		Type:        "gym",
		Name:        "Gym",
		Description: "Structured gym workouts and training plans",
	},
	{
		ID:          "1d981773-a5ff-4b52-ab67-4d8b3039c8c2",
		Type:        "culinary_recipes",
		Name:        "Culinary Recipes",
		Description: "Delicious recipes and cooking adventures",
	},
	{
		ID:          "4de71739-72ea-4ddc-bc50-20e6cb87a925",
		Type:        "love_letters",
		Name:        "Love Letters",
		Description: "Heartfelt messages and meaningful connections",
	},
	{
		ID:          "765e8dd6-1ba5-4494-b014-eb60eeb72d7b",
		Type:        "quotes",
		Name:        "Quotes",
		Description: "Daily inspiration and words of wisdom",
	},
	{
		ID:          "7ad90753-d1b5-41b1-97cf-8be399dcb23b",
		Type:        "songs",
		Name:        "Songs",
		Description: "Curated music and festive melodies",
	},
	{
		ID:          "b933eb5f-41cb-4549-a609-792c44c70f97",
		Type:        "friends",
		Name:        "Friends",
		Description: "Social activities and bonding experiences",
	},
}

// ByID returns the catalog entry with the given id.
func ByID(id string) (Template, bool) {
	for _, t := range Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// ByType returns the catalog entry with the given machine type.
func ByType(templateType string) (Template, bool) {
	for _, t := range Templates {
		if t.Type == templateType {
			return t, true
		}
	}
	return Template{}, false
}
