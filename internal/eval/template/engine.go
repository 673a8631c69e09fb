package template

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/aymerick/raymond"
)

// registerOnce guards raymond's global helper table, which panics on
// duplicate registration.
var registerOnce sync.Once

// Engine renders Handlebars templates
type Engine struct {
	cache map[string]*raymond.Template
	mu    sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	registerOnce.Do(registerHelpers)

	return &Engine{
		cache: make(map[string]*raymond.Template),
	}
}

// Render renders a template with the given data
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return result, nil
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(templateStr string) (*raymond.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	e.cache[templateStr] = tmpl
	return tmpl, nil
}

// ValidateTemplate validates a template without rendering it
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := raymond.Parse(templateStr)
	return err
}

// registerHelpers registers custom Handlebars helpers
func registerHelpers() {
	// default helper - return default value if first arg is empty
	raymond.RegisterHelper("default", func(value interface{}, defaultValue interface{}) interface{} {
		if value == nil || value == "" {
			return defaultValue
		}
		return value
	})

	raymond.RegisterHelper("eq", func(a, b interface{}) bool {
		return a == b
	})

	// expression helper - canonical text of a rule tree
	raymond.RegisterHelper("expression", func(node interface{}) string {
		if s, ok := node.(fmt.Stringer); ok {
			return s.String()
		}
		return ""
	})

	// rfc3339 helper - format a timestamp in UTC
	raymond.RegisterHelper("rfc3339", func(value interface{}) string {
		t, ok := value.(time.Time)
		if !ok || t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	})

	// len helper - get length of array/slice/string/map
	raymond.RegisterHelper("len", func(value interface{}) int {
		v := reflect.ValueOf(value)
		switch v.Kind() {
		case reflect.Array, reflect.Slice, reflect.String, reflect.Map:
			return v.Len()
		default:
			return 0
		}
	})
}
