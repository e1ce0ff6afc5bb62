package emoji

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps canonical mood labels to emoji options. The labels here are
// the display set, which is not identical to the counter label set; the
// normalize step bridges the two (Utangaç counts are shown as Utanmış).
type Table struct {
	options map[string][]string
	logger  *slog.Logger
}

// defaultOptions is used when no table file exists or it cannot be parsed.
var defaultOptions = map[string][]string{
	"Mutlu":       {"😀", "😄", "😊"},
	"Üzgün":       {"😢", "😞"},
	"Öfkeli":      {"😠", "😡"},
	"Şaşkın":      {"😲", "😮"},
	"Utanmış":     {"😳", "☺️"},
	"Endişeli":    {"😟", "😰"},
	"Gülümseyen":  {"🙂", "😊"},
	"Flörtöz":     {"😉", "😘"},
	"Sorgulayıcı": {"🤔"},
	"Yorgun":      {"😴", "🥱"},
}

// normalizeMap folds model-produced labels onto table keys.
var normalizeMap = map[string]string{
	"utangaç":     "Utanmış",
	"utanmış":     "Utanmış",
	"gülümseyen":  "Gülümseyen",
	"mutlu":       "Mutlu",
	"üzgün":       "Üzgün",
	"öfkeli":      "Öfkeli",
	"şaşkın":      "Şaşkın",
	"endişeli":    "Endişeli",
	"flörtöz":     "Flörtöz",
	"sorgulayıcı": "Sorgulayıcı",
	"yorgun":      "Yorgun",
}

// Load reads a YAML mood→emoji table (map of label to emoji list). A
// missing or broken file falls back to the built-in table so the emotion
// flow always has emojis to pick from.
func Load(path string, logger *slog.Logger) *Table {
	t := &Table{options: defaultOptions, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read emoji table, using defaults", "path", path, "err", err)
		} else {
			logger.Debug("emoji table file missing, using defaults", "path", path)
		}
		return t
	}

	parsed := make(map[string][]string)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		logger.Warn("cannot parse emoji table, using defaults", "path", path, "err", err)
		return t
	}
	if len(parsed) == 0 {
		logger.Warn("emoji table empty, using defaults", "path", path)
		return t
	}

	logger.Info("loaded emoji table", "path", path, "moods", len(parsed))
	t.options = parsed
	return t
}

// Normalize maps a free-form mood label onto its canonical table key.
// Unknown labels pass through unchanged.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := normalizeMap[key]; ok {
		return canonical
	}
	return name
}

// Pick returns a random emoji for the mood, or "" when the mood has no
// table entry.
func (t *Table) Pick(mood string) string {
	options := t.options[Normalize(mood)]
	if len(options) == 0 {
		return ""
	}
	return options[rand.IntN(len(options))]
}
