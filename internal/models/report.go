package models

// Типы обнаруженных шрифтов.
const (
	FontTypeGoogle = "google"
	FontTypeWeb    = "web"
	FontTypeSystem = "system"
)

// Font — один обнаруженный на странице шрифт.
type Font struct {
	Family string `json:"family"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}

// FontReport — результат сканирования шрифтов одной страницы.
// Stylesheets — адреса разобранных внешних таблиц стилей; раздел
// показывается только пользователям с доступом к отчёту.
type FontReport struct {
	URL         string   `json:"url"`
	Fonts       []Font   `json:"fonts"`
	Stylesheets []string `json:"stylesheets"`
}
