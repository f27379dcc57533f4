package prompt

// textSet is the full template text for one language.
type textSet struct {
	goal  string
	steps Steps

	focus           string
	recommendations string
	format          string

	avoidanceHeader      string
	mindMapLabel         string
	avoidanceLabel       string
	recentLabel          string
	categoriesLabel      string
	avoidanceInstruction string

	knowledgeGraph    string
	contentGeneration string
}

var textSets = map[Language]textSet{
	Chinese: chineseText,
	English: englishText,
}
