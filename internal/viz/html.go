package viz

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))
}

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "force", "circle", or "grid"
	Title  string // Page title, usually the root paper label
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{
		Layout: "force",
		Title:  "Citation graph",
	}
}

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{"force", "circle", "grid"}

// GenerateHTML generates a self-contained HTML file for the graph visualization.
func GenerateHTML(graph *GraphData, opts HTMLOptions) (string, error) {
	if graph == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}

	if err := ValidateLayout(opts.Layout); err != nil {
		return "", err
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	if graph.IsEmpty() {
		return generateEmptyHTML(opts.Title), nil
	}

	graphJSON, err := graph.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:     opts.Title,
		ScriptTag: template.HTML(cdnScriptTag),
		GraphJSON: template.JS(graphJSON),
		Layout:    layoutToCytoscape(opts.Layout),
		Papers:    len(graph.Nodes),
		Citations: len(graph.Edges),
		Legend:    legend(graph),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering graph page: %w", err)
	}

	return buf.String(), nil
}

// WriteHTML renders the graph page to w.
func WriteHTML(w io.Writer, graph *GraphData, opts HTMLOptions) error {
	page, err := GenerateHTML(graph, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, page)
	return err
}

// ValidateLayout checks if the layout option is valid. Empty selects force.
func ValidateLayout(layout string) error {
	if layout == "" {
		return nil
	}
	for _, l := range ValidLayouts {
		if l == layout {
			return nil
		}
	}
	return fmt.Errorf("invalid layout %q: must be one of %v", layout, ValidLayouts)
}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	ScriptTag template.HTML
	GraphJSON template.JS
	Layout    string
	Papers    int
	Citations int
	Legend    []legendEntry
}

// legendEntry is one level swatch in the page header.
type legendEntry struct {
	Level int
	Color string
	Count int
}

// legend counts the nodes per level, shallowest first.
func legend(graph *GraphData) []legendEntry {
	var entries []legendEntry
	for _, n := range graph.Nodes {
		for len(entries) <= n.Level {
			level := len(entries)
			entries = append(entries, legendEntry{Level: level, Color: LevelColor(level)})
		}
		entries[n.Level].Count++
	}
	return entries
}

// layoutToCytoscape converts user-friendly layout names to Cytoscape.js layout algorithm names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case "circle":
		return "circle"
	case "grid":
		return "grid"
	default:
		return "cose"
	}
}

const cdnScriptTag = `<script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>`

// generateEmptyHTML returns HTML for an empty graph state.
func generateEmptyHTML(title string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>` + template.HTMLEscapeString(title) + ` - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No graph data</h2>
    <p>The traversal did not reach any paper.</p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  {{.ScriptTag}}
  <style>
    html, body {
      margin: 0;
      height: 100%;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    body {
      display: flex;
      flex-direction: column;
    }
    header {
      display: flex;
      align-items: center;
      gap: 16px;
      padding: 8px 16px;
      border-bottom: 1px solid #ddd;
      background: #fafafa;
      font-size: 13px;
    }
    header h1 {
      font-size: 15px;
      margin: 0;
    }
    header .counts {
      color: #666;
    }
    .legend span {
      display: inline-block;
      margin-right: 10px;
    }
    .legend i {
      display: inline-block;
      width: 10px;
      height: 10px;
      border-radius: 50%;
      margin-right: 4px;
      vertical-align: middle;
    }
    #cy {
      flex: 1;
      background: white;
    }
    #tooltip {
      position: absolute;
      display: none;
      max-width: 320px;
      padding: 8px 12px;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      font-size: 13px;
      pointer-events: none;
      z-index: 10;
    }
    #tooltip .level {
      font-size: 10px;
      text-transform: uppercase;
      color: #888;
    }
    #tooltip .label {
      font-weight: bold;
      margin: 2px 0 4px;
    }
    #tooltip .detail {
      color: #555;
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <span class="counts">{{.Papers}} papers, {{.Citations}} citations</span>
    <span class="legend">
      {{range .Legend}}<span><i style="background: {{.Color}}"></i>level {{.Level}} ({{.Count}})</span>{{end}}
    </span>
  </header>
  <div id="cy"></div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const elements = {{.GraphJSON}};
      const layout = "{{.Layout}}";

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: elements,
        style: [
          {
            selector: 'node',
            style: {
              'background-color': 'data(color)',
              'width': 'data(size)',
              'height': 'data(size)',
              'label': 'data(label)',
              'font-size': '10px',
              'color': '#333',
              'text-valign': 'bottom',
              'text-margin-y': '4px'
            }
          },
          {
            selector: 'node.root',
            style: {
              'border-width': 3,
              'border-color': '#333',
              'font-size': '12px',
              'font-weight': 'bold'
            }
          },
          {
            selector: 'node.excluded',
            style: {
              'shape': 'round-rectangle',
              'border-width': 2,
              'border-style': 'dashed',
              'border-color': '#555'
            }
          },
          {
            selector: 'edge',
            style: {
              'width': 1.5,
              'line-color': '#b0b8bf',
              'target-arrow-color': '#b0b8bf',
              'target-arrow-shape': 'triangle',
              'curve-style': 'bezier'
            }
          },
          {
            selector: '.faded',
            style: {
              'opacity': 0.15
            }
          }
        ],
        layout: {
          name: layout,
          animate: false,
          nodeRepulsion: 8000,
          idealEdgeLength: 100
        }
      });

      const tooltip = document.getElementById('tooltip');

      function escapeHtml(value) {
        if (value === undefined || value === null) return '';
        return String(value)
          .replace(/&/g, '&amp;')
          .replace(/</g, '&lt;')
          .replace(/>/g, '&gt;')
          .replace(/"/g, '&quot;');
      }

      function describe(node) {
        const d = node.data();
        const lines = [];
        lines.push('<div class="level">level ' + d.level + (d.type === 'excluded' ? ', excluded' : '') + '</div>');
        lines.push('<div class="label">' + escapeHtml(d.title || d.label) + '</div>');
        if (d.authors) lines.push('<div class="detail">' + escapeHtml(d.authors) + '</div>');
        if (d.year) lines.push('<div class="detail">' + d.year + '</div>');
        if (d.citationCount !== undefined) lines.push('<div class="detail">cited by ' + d.citationCount + '</div>');
        lines.push('<div class="detail">' + escapeHtml(d.id) + '</div>');
        return lines.join('');
      }

      cy.on('mouseover', 'node', function(evt) {
        const pos = evt.renderedPosition;
        tooltip.innerHTML = describe(evt.target);
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 60) + 'px';
        tooltip.style.display = 'block';
      });

      cy.on('mouseout', 'node', function() {
        tooltip.style.display = 'none';
      });

      // Tap shows the papers a node cites and is cited by
      cy.on('tap', 'node', function(evt) {
        const keep = evt.target.closedNeighborhood();
        cy.elements().addClass('faded');
        keep.removeClass('faded');
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) cy.elements().removeClass('faded');
      });

      // Double tap opens the paper page
      cy.on('dbltap', 'node', function(evt) {
        const url = evt.target.data('url');
        if (url) window.open(url, '_blank', 'noopener');
      });
    })();
  </script>
</body>
</html>`
