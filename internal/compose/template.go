package compose

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"shotscribe/internal/config"
	"shotscribe/internal/services"
)

//go:embed templates
var builtinTemplates embed.FS

// Category groups templates by the job they drive.
type Category string

const (
	CategoryBreakdown Category = "breakdown"
	CategoryRewrite   Category = "rewrite"
)

// Categories lists every template category.
var Categories = []Category{CategoryBreakdown, CategoryRewrite}

// DefaultUserPrompt is used when a template has no user prompt section.
const DefaultUserPrompt = "Complete the task described above."

var userPromptHeading = regexp.MustCompile(`(?m)^# (?:用户提示词|User Prompt)`)

var requiredPlaceholders = map[Category][]string{
	CategoryBreakdown: {"{fields_definition}", "{visual_context}", "{asr_result}", "{video_metadata}"},
	CategoryRewrite:   {"{fields_definition}", "{original_script}", "{user_instruction}"},
}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(name))); c {
	case CategoryBreakdown, CategoryRewrite:
		return c, nil
	default:
		return "", services.Wrap(services.ErrValidation, "templates", "parse category",
			fmt.Sprintf("unknown category %q (want breakdown or rewrite)", name), nil)
	}
}

// TemplateInfo describes one available template.
type TemplateInfo struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	// Builtin is false when the template comes from the templates directory.
	Builtin bool `json:"builtin"`
}

// ValidationResult lists the problems found in a template.
type ValidationResult struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Errors   []string `json:"errors"`
}

// Valid reports whether no problems were found.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Library resolves templates from a directory with embedded fallbacks.
type Library struct {
	dir string
}

// NewLibrary returns a library overlaying dir (may be empty) on the built-in
// templates.
func NewLibrary(dir string) *Library {
	return &Library{dir: strings.TrimSpace(dir)}
}

// Dir returns the custom template directory, or "".
func (l *Library) Dir() string { return l.dir }

// Load returns the raw template text.
func (l *Library) Load(category Category, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", services.Wrap(services.ErrValidation, "templates", "load", fmt.Sprintf("invalid template name %q", name), nil)
	}
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, string(category), name+".md"))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("templates: read %s/%s: %w", category, name, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + string(category) + "/" + name + ".md")
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "templates", "load",
			fmt.Sprintf("template %s/%s does not exist", category, name), nil)
	}
	return string(data), nil
}

// List returns every template of the category, custom ones shadowing
// built-ins of the same name.
func (l *Library) List(category Category) ([]TemplateInfo, error) {
	found := map[string]TemplateInfo{}
	entries, err := fs.ReadDir(builtinTemplates, "templates/"+string(category))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, entry := range entries {
		if name, ok := templateName(entry); ok {
			found[name] = TemplateInfo{Category: category, Name: name, Builtin: true}
		}
	}
	if l.dir != "" {
		custom, err := os.ReadDir(filepath.Join(l.dir, string(category)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("templates: list %s: %w", category, err)
		}
		for _, entry := range custom {
			if name, ok := templateName(entry); ok {
				found[name] = TemplateInfo{Category: category, Name: name}
			}
		}
	}
	out := make([]TemplateInfo, 0, len(found))
	for name, info := range found {
		info.Description = name
		if text, err := l.Load(category, name); err == nil {
			info.Description = describe(text, name)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Validate checks a template for the placeholders its category needs and for
// an output format section.
func (l *Library) Validate(category Category, name string) ValidationResult {
	result := ValidationResult{Category: category, Name: name}
	text, err := l.Load(category, name)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	for _, placeholder := range requiredPlaceholders[category] {
		if !strings.Contains(text, placeholder) {
			result.Errors = append(result.Errors, "missing required placeholder "+placeholder)
		}
	}
	if !strings.Contains(text, "# 输出格式") && !strings.Contains(text, "# Output Format") {
		result.Errors = append(result.Errors, "missing output format section")
	}
	return result
}

// Copy duplicates an existing template under a new name in the templates
// directory and returns the new file's path.
func (l *Library) Copy(category Category, source, target string) (string, error) {
	if l.dir == "" {
		return "", services.Wrap(services.ErrConfiguration, "templates", "copy", "paths.templates_dir is not set", nil)
	}
	text, err := l.Load(category, source)
	if err != nil {
		return "", err
	}
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, `/\`) || strings.HasPrefix(target, ".") {
		return "", services.Wrap(services.ErrValidation, "templates", "copy", fmt.Sprintf("invalid template name %q", target), nil)
	}
	dest := filepath.Join(l.dir, string(category), target+".md")
	if _, err := os.Stat(dest); err == nil {
		return "", services.Wrap(services.ErrValidation, "templates", "copy", "template already exists: "+dest, nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("templates: create directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("templates: write %s: %w", dest, err)
	}
	return dest, nil
}

func templateName(entry fs.DirEntry) (string, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
		return "", false
	}
	return strings.TrimSuffix(entry.Name(), ".md"), true
}

// describe uses the template's first line when it is a heading.
func describe(text, fallback string) string {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	if strings.HasPrefix(first, "#") {
		return strings.TrimSpace(strings.TrimLeft(first, "#"))
	}
	return fallback
}

// Render substitutes every {key} in text with its value. Unknown placeholders
// are left untouched.
func Render(text string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", vars[key])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// SplitPrompt separates a rendered template into system and user prompts.
func SplitPrompt(rendered string) (string, string) {
	loc := userPromptHeading.FindStringIndex(rendered)
	if loc == nil {
		return strings.TrimSpace(rendered), DefaultUserPrompt
	}
	system := strings.TrimSpace(rendered[:loc[0]])
	user := strings.TrimSpace(rendered[loc[1]:])
	if user == "" {
		user = DefaultUserPrompt
	}
	return system, user
}

// RenderFields formats the shot table column definitions.
func RenderFields(fields []config.Field) string {
	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		var b strings.Builder
		fmt.Fprintf(&b, "- **%s**: %s", field.Key, field.Description)
		if field.Type == "enum" && len(field.Options) > 0 {
			fmt.Fprintf(&b, "\n  - Options: %s", strings.Join(field.Options, ", "))
		}
		var limits []string
		if field.MinLength > 0 {
			limits = append(limits, fmt.Sprintf("at least %d characters", field.MinLength))
		}
		if field.MaxLength > 0 {
			limits = append(limits, fmt.Sprintf("at most %d characters", field.MaxLength))
		}
		if len(limits) > 0 {
			fmt.Fprintf(&b, "\n  - Length: %s", strings.Join(limits, ", "))
		}
		if field.Required {
			b.WriteString(" (required)")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
