package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	specMarker     = regexp.MustCompile(`(?m)^\s*\{?\s*["']?(openapi|swagger)["']?\s*:`)
	endpointMarker = regexp.MustCompile(`(?mi)^\s*["']?/[^\s:"']*["']?\s*:\s*\{?\s*$[\s\S]*?^\s*["']?(get|put|post|delete|patch|head|options)["']?\s*:`)
)

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// Spec is the flattened view of an OpenAPI or Swagger document.
type Spec struct {
	Title       string
	Version     string
	Description string
	Operations  []Operation
}

// Operation is a single method/path pair.
type Operation struct {
	Method      string
	Path        string
	Summary     string
	Description string
	Parameters  []Parameter
	RequestBody string
	Responses   []Response
	Tags        []string
	Deprecated  bool
}

// Parameter describes an operation input.
type Parameter struct {
	Name        string `yaml:"name"`
	In          string `yaml:"in"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Response is a status code with its description.
type Response struct {
	Code        string
	Description string
}

type rawSpec struct {
	OpenAPI  string    `yaml:"openapi"`
	Swagger  string    `yaml:"swagger"`
	BasePath string    `yaml:"basePath"`
	Info     rawInfo   `yaml:"info"`
	Paths    yaml.Node `yaml:"paths"`
}

type rawInfo struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type rawOperation struct {
	Summary     string      `yaml:"summary"`
	Description string      `yaml:"description"`
	OperationID string      `yaml:"operationId"`
	Tags        []string    `yaml:"tags"`
	Deprecated  bool        `yaml:"deprecated"`
	Parameters  []Parameter `yaml:"parameters"`
	RequestBody *struct {
		Description string               `yaml:"description"`
		Content     map[string]yaml.Node `yaml:"content"`
	} `yaml:"requestBody"`
	Responses yaml.Node `yaml:"responses"`
}

// LooksLikeSpec reports whether text appears to be an OpenAPI/Swagger
// document or a bare paths fragment.
func LooksLikeSpec(text string) bool {
	return specMarker.MatchString(text) || endpointMarker.MatchString(text)
}

// Parse decodes a YAML or JSON OpenAPI document. Operations keep document order.
func Parse(data []byte) (*Spec, error) {
	var raw rawSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode openapi: %v", domain.ErrInvalidInput, err)
	}

	paths := &raw.Paths
	if paths.Kind == 0 {
		// A bare fragment: the top level is the paths mapping itself.
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("%w: decode openapi: %v", domain.ErrInvalidInput, err)
		}
		if len(root.Content) == 1 && hasPathKeys(root.Content[0]) {
			paths = root.Content[0]
		}
	}
	if paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: openapi document has no paths", domain.ErrInvalidInput)
	}

	spec := &Spec{
		Title:       strings.TrimSpace(raw.Info.Title),
		Version:     strings.TrimSpace(raw.Info.Version),
		Description: strings.TrimSpace(raw.Info.Description),
	}

	basePath := strings.TrimSuffix(raw.BasePath, "/")
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := basePath + paths.Content[i].Value
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		ops, err := decodePathItem(path, item)
		if err != nil {
			return nil, err
		}
		spec.Operations = append(spec.Operations, ops...)
	}

	if len(spec.Operations) == 0 {
		return nil, fmt.Errorf("%w: openapi document has no operations", domain.ErrInvalidInput)
	}
	return spec, nil
}

func decodePathItem(path string, item *yaml.Node) ([]Operation, error) {
	var shared []Parameter
	for i := 0; i+1 < len(item.Content); i += 2 {
		if item.Content[i].Value == "parameters" {
			if err := item.Content[i+1].Decode(&shared); err != nil {
				return nil, fmt.Errorf("%w: parameters of %s: %v", domain.ErrInvalidInput, path, err)
			}
		}
	}

	var ops []Operation
	for i := 0; i+1 < len(item.Content); i += 2 {
		method := strings.ToLower(item.Content[i].Value)
		if !httpMethods[method] {
			continue
		}
		var raw rawOperation
		if err := item.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrInvalidInput, strings.ToUpper(method), path, err)
		}
		ops = append(ops, newOperation(strings.ToUpper(method), path, raw, shared))
	}
	return ops, nil
}

func newOperation(method, path string, raw rawOperation, shared []Parameter) Operation {
	op := Operation{
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(raw.Summary),
		Description: strings.TrimSpace(raw.Description),
		Tags:        raw.Tags,
		Deprecated:  raw.Deprecated,
	}
	if op.Summary == "" && raw.OperationID != "" {
		op.Summary = raw.OperationID
	}

	seen := make(map[string]bool)
	for _, p := range append(append([]Parameter{}, raw.Parameters...), shared...) {
		key := p.In + ":" + p.Name
		if p.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		op.Parameters = append(op.Parameters, p)
	}

	if raw.RequestBody != nil {
		op.RequestBody = strings.TrimSpace(raw.RequestBody.Description)
		if op.RequestBody == "" && len(raw.RequestBody.Content) > 0 {
			types := make([]string, 0, len(raw.RequestBody.Content))
			for ct := range raw.RequestBody.Content {
				types = append(types, ct)
			}
			sort.Strings(types)
			op.RequestBody = strings.Join(types, ", ")
		}
	}

	if raw.Responses.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(raw.Responses.Content); i += 2 {
			var body struct {
				Description string `yaml:"description"`
			}
			_ = raw.Responses.Content[i+1].Decode(&body)
			op.Responses = append(op.Responses, Response{
				Code:        raw.Responses.Content[i].Value,
				Description: strings.TrimSpace(body.Description),
			})
		}
	}
	return op
}

func hasPathKeys(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode || len(n.Content) < 2 {
		return false
	}
	for i := 0; i < len(n.Content); i += 2 {
		if !strings.HasPrefix(n.Content[i].Value, "/") {
			return false
		}
	}
	return true
}

// Text renders the operation as a plain-text summary suitable for embedding.
func (o Operation) Text() string {
	var b strings.Builder

	b.WriteString(o.Method + " " + o.Path)
	if o.Summary != "" {
		b.WriteString(" - " + o.Summary)
	}
	if o.Deprecated {
		b.WriteString(" (deprecated)")
	}
	if o.Description != "" && o.Description != o.Summary {
		b.WriteString("\n" + o.Description)
	}

	if len(o.Parameters) > 0 {
		parts := make([]string, 0, len(o.Parameters))
		for _, p := range o.Parameters {
			s := p.Name
			var attrs []string
			if p.In != "" {
				attrs = append(attrs, p.In)
			}
			if p.Required {
				attrs = append(attrs, "required")
			}
			if len(attrs) > 0 {
				s += " (" + strings.Join(attrs, ", ") + ")"
			}
			if p.Description != "" {
				s += " - " + strings.TrimSpace(p.Description)
			}
			parts = append(parts, s)
		}
		b.WriteString("\nParameters: " + strings.Join(parts, "; "))
	}

	if o.RequestBody != "" {
		b.WriteString("\nRequest body: " + o.RequestBody)
	}

	if len(o.Responses) > 0 {
		parts := make([]string, 0, len(o.Responses))
		for _, r := range o.Responses {
			if r.Description != "" {
				parts = append(parts, r.Code+" "+r.Description)
			} else {
				parts = append(parts, r.Code)
			}
		}
		b.WriteString("\nResponses: " + strings.Join(parts, ", "))
	}

	if len(o.Tags) > 0 {
		b.WriteString("\nTags: " + strings.Join(o.Tags, ", "))
	}
	return b.String()
}

// Block converts the operation to an api-operation content block.
func (o Operation) Block() domain.ContentBlock {
	return domain.ContentBlock{
		Kind:      domain.BlockAPIOperation,
		Text:      o.Text(),
		APIMethod: o.Method,
		APIPath:   o.Path,
	}
}

// Blocks flattens data into api-operation blocks.
func Blocks(data []byte) ([]domain.ContentBlock, error) {
	spec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	blocks := make([]domain.ContentBlock, 0, len(spec.Operations))
	for _, op := range spec.Operations {
		blocks = append(blocks, op.Block())
	}
	return blocks, nil
}

// OperationBlock builds a block for an operation described outside of a
// schema, such as an HTML element carrying method and path attributes.
func OperationBlock(method, path, description string) domain.ContentBlock {
	return Operation{
		Method:      strings.ToUpper(strings.TrimSpace(method)),
		Path:        strings.TrimSpace(path),
		Description: strings.TrimSpace(description),
	}.Block()
}
