package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/regflow/pkg/workflow/measure"
	"github.com/askiada/regflow/pkg/workflow/model"
)

// DOTDrawer is a drawer that writes the workflow graph in the DOT language.
// It is not safe for concurrent use.
type DOTDrawer struct {
	graph        graph.Graph[string, string]
	steps        map[string]struct{}
	fileName     string
	hierarchical bool
}

// DOTOption configures a DOTDrawer.
type DOTOption func(d *DOTDrawer)

// Hierarchical groups nodes of the same sub-workflow into a cluster.
func Hierarchical(on bool) DOTOption {
	return func(d *DOTDrawer) {
		d.hierarchical = on
	}
}

// NewDOTDrawer creates a new DOT drawer writing to fileName on Draw.
func NewDOTDrawer(fileName string, opts ...DOTOption) *DOTDrawer {
	d := &DOTDrawer{
		fileName: fileName,
		graph:    graph.New(graph.StringHash, graph.Directed()),
		steps:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// AddStep adds a node to the graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name)
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	d.steps[name] = struct{}{}

	return nil
}

// AddLink adds a link between parent and children nodes.
func (d *DOTDrawer) AddLink(parentName, childrenName string) error {
	err := d.graph.AddEdge(parentName, childrenName)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childrenName)
	}

	return nil
}

var statusColors = map[model.Status][3]uint8{
	model.StatusSucceeded: {46, 139, 87},
	model.StatusCached:    {169, 169, 169},
	model.StatusFailed:    {220, 20, 60},
	model.StatusSkipped:   {255, 215, 0},
}

// SetStatus fills the node with the colour of status.
func (d *DOTDrawer) SetStatus(stepName string, status model.Status) error {
	rgb, ok := statusColors[status]
	if !ok {
		return nil
	}

	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", stepName)
	}

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	properties.Attributes["style"] = "filled"
	properties.Attributes["fillcolor"] = colour.ToHEX().String()

	return nil
}

const maxRGB = 240

// AddMeasure labels nodes with their durations and edges with the time a node waited after its
// parent finished. Edges are coloured from blue (shortest wait) to red (longest wait).
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	var minWait, maxWait time.Duration

	first := true

	for _, step := range msr.AllMetrics() {
		for _, elapsed := range step.AllWaits() {
			if first || elapsed < minWait {
				minWait = elapsed
			}
			if first || elapsed > maxWait {
				maxWait = elapsed
			}
			first = false
		}
	}

	for name, step := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if errors.Is(err, graph.ErrVertexNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		labels := []string{}
		if avg := step.AVGDuration(); avg != 0 {
			labels = append(labels, "avg: "+avg.String())
		}
		if step.Jobs() > 1 {
			labels = append(labels, fmt.Sprintf("jobs: %d", step.Jobs()))
		}
		if step.Cached() > 0 {
			labels = append(labels, fmt.Sprintf("cached: %d", step.Cached()))
		}
		if step.GetTotalDuration() > 0 {
			labels = append(labels, "end: "+step.GetTotalDuration().String())
		}
		if len(labels) > 0 {
			properties.Attributes["xlabel"] = strings.Join(labels, ", ")
		}

		for parent, elapsed := range step.AllWaits() {
			colour, err := waitColour(elapsed, minWait, maxWait)
			if err != nil {
				return err
			}

			err = d.graph.UpdateEdge(parent, name,
				graph.EdgeAttribute("label", elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", colour),
			)
			if errors.Is(err, graph.ErrEdgeNotFound) {
				continue
			}
			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

func waitColour(elapsed, minWait, maxWait time.Duration) (string, error) {
	fraction := 1.0
	if maxWait > minWait {
		fraction = float64(elapsed-minWait) / float64(maxWait-minWait)
	}

	red := maxRGB * fraction
	blue := maxRGB - red

	colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

// Draw creates the DOT file.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = d.Render(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

// Render writes the DOT description of the graph to wrt.
func (d *DOTDrawer) Render(wrt io.Writer) error {
	desc, err := generateDOT(d.graph, d.hierarchical)
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

//nolint:lll //this is a template
const dotTemplate = `{{define "vertex"}}"{{.Source}}" [ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ];{{end}}strict {{.GraphType}} {
{{range $k, $v := .Attributes}}	{{$k}}="{{$v}}";
{{end}}{{range $c := .Clusters}}	subgraph "cluster_{{$c.Name}}" {
		label="{{$c.Name}}";
{{range $c.Statements}}		{{template "vertex" .}}
{{end}}	}
{{end}}{{range $s := .Statements}}	{{if .Target}}"{{.Source}}" {{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ];{{else}}{{template "vertex" .}}{{end}}
{{end}}}
`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Clusters     []cluster
	Statements   []statement
}

type cluster struct {
	Name       string
	Statements []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func generateDOT(gra graph.Graph[string, string], hierarchical bool) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   map[string]string{"rankdir": "TB"},
		EdgeOperator: "--",
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	sort.Strings(vertices)

	clusters := map[string]int{}

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)

		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)

				continue
			}
			attributes[k] = v
		}

		stmt := statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		}

		if idx := strings.LastIndex(vertex, "."); hierarchical && idx > 0 {
			name := vertex[:idx]
			pos, ok := clusters[name]
			if !ok {
				pos = len(desc.Clusters)
				clusters[name] = pos
				desc.Clusters = append(desc.Clusters, cluster{Name: name})
			}
			desc.Clusters[pos].Statements = append(desc.Clusters[pos].Statements, stmt)
		} else {
			desc.Statements = append(desc.Statements, stmt)
		}

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
