package chat

// Category is a topic area with a few ready-made questions
type Category struct {
	Name        string   `json:"name"`
	Suggestions []string `json:"suggestions"`
}

var catalog = []Category{
	{
		Name: "Web Development",
		Suggestions: []string{
			"Explain React Hooks",
			"What is CSS Grid?",
			"How to use async/await?",
		},
	},
	{
		Name: "AI & Machine Learning",
		Suggestions: []string{
			"What is overfitting in ML?",
			"Explain neural networks",
			"What is transfer learning?",
		},
	},
	{
		Name: "Data Science",
		Suggestions: []string{
			"What is pandas?",
			"Explain data visualization",
			"What is feature engineering?",
		},
	},
	{
		Name: "General Science",
		Suggestions: []string{
			"What is quantum computing?",
			"Explain blockchain technology",
			"What is cloud computing?",
		},
	},
	{
		Name: "Programming",
		Suggestions: []string{
			"How to reverse a string in JavaScript?",
			"What is recursion?",
			"Explain object-oriented programming",
		},
	},
}

// Categories returns the category names in display order
func Categories() []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.Name
	}
	return names
}

// Catalog returns a copy of every category with its suggestions
func Catalog() []Category {
	out := make([]Category, len(catalog))
	for i, c := range catalog {
		out[i] = Category{Name: c.Name, Suggestions: append([]string(nil), c.Suggestions...)}
	}
	return out
}

// Suggestions returns the quick questions for category, or an empty slice
// for an unknown category
func Suggestions(category string) []string {
	for _, c := range catalog {
		if c.Name == category {
			return append([]string(nil), c.Suggestions...)
		}
	}
	return []string{}
}

// IsCategory reports whether name is a known category
func IsCategory(name string) bool {
	for _, c := range catalog {
		if c.Name == name {
			return true
		}
	}
	return false
}
