// Package command renders the text replies for the bot's named commands.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Beyllin/link/internal/resolver"
)

// ErrUnknownCommand is returned by Render for names not in the catalog
var ErrUnknownCommand = errors.New("unknown command")

// SiteLister provides the supported sites shown by the support command.
// *resolver.Router satisfies it.
type SiteLister interface {
	Sites() []resolver.Site
}

const supportTemplate = `Supported sites:
{{range .}}
* {{.Name}}
  Example: {{.Example}}
{{- if .Notes}}
  Notes: {{.Notes}}
{{- end}}
{{end}}
Send a link from any of these sites to get its direct download link.`

const helpTemplate = `Direct downloads - help

How to use:
1. Send a download link
2. Wait while the bot processes it
3. Receive the direct link

Commands:
{{- range .}}
/{{.}}
{{- end}}

Only links from supported sites are processed.`

// Catalog maps command names and their aliases to renderers.
type Catalog struct {
	renderers map[string]func() (string, error)
	aliases   map[string]string
}

// NewCatalog builds the default command set: support and help, with
// their Spanish aliases.
func NewCatalog(sites SiteLister) *Catalog {
	support := template.Must(template.New("support").Parse(supportTemplate))
	help := template.Must(template.New("help").Parse(helpTemplate))

	c := &Catalog{
		renderers: make(map[string]func() (string, error)),
		aliases:   make(map[string]string),
	}
	c.renderers["support"] = func() (string, error) {
		return execute(support, sites.Sites())
	}
	c.renderers["help"] = func() (string, error) {
		return execute(help, []string{"support - list supported sites", "help - show this message"})
	}
	c.aliases["soporte"] = "support"
	c.aliases["ayuda"] = "help"
	return c
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// normalize strips a leading slash and any @botname suffix
func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}

// Render produces the reply text for a command name or alias
func (c *Catalog) Render(name string) (string, error) {
	key := normalize(name)
	if target, ok := c.aliases[key]; ok {
		key = target
	}
	render, ok := c.renderers[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return render()
}

// Has reports whether name resolves to a command
func (c *Catalog) Has(name string) bool {
	key := normalize(name)
	if target, ok := c.aliases[key]; ok {
		key = target
	}
	_, ok := c.renderers[key]
	return ok
}

// Names lists every accepted name, aliases included, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.renderers)+len(c.aliases))
	for name := range c.renderers {
		names = append(names, name)
	}
	for alias := range c.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}
