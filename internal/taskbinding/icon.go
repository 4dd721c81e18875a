package taskbinding

import "moodmate/internal/model"

const defaultIcon = "✨"

var categoryIcons = map[model.Category]string{
	model.CategoryBreathing:   "🌸",
	model.CategoryJournaling:  "📝",
	model.CategoryMindfulness: "🧘",
	model.CategoryMovement:    "🏃",
}

// Icon maps a task category to its glyph.
func Icon(c model.Category) string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return defaultIcon
}
