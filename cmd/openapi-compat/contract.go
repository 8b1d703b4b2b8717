package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var httpMethods = map[string]struct{}{
	"get": {}, "put": {}, "post": {}, "delete": {}, "patch": {}, "head": {}, "options": {},
}

// endpoint is one method on one path.
type endpoint struct {
	Responses  map[string]struct{}
	Parameters map[string]bool // name@in -> required
}

type contract struct {
	BasePath string
	Paths    map[string]map[string]endpoint
}

func loadFile(path string) (contract, error) {
	// #nosec G304: path comes from a CLI flag
	raw, err := os.ReadFile(path)
	if err != nil {
		return contract{}, err
	}
	return parseContract(raw)
}

// parseContract reads a swagger 2.0 document. JSON parses as YAML.
func parseContract(raw []byte) (contract, error) {
	var doc struct {
		BasePath string                            `yaml:"basePath"`
		Paths    map[string]map[string]interface{} `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return contract{}, err
	}
	if doc.Paths == nil {
		return contract{}, errors.New("missing top-level paths field")
	}

	c := contract{BasePath: strings.TrimSuffix(doc.BasePath, "/"), Paths: make(map[string]map[string]endpoint)}
	for path, methods := range doc.Paths {
		eps := make(map[string]endpoint)
		for method, body := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := httpMethods[m]; !ok {
				continue
			}
			body, ok := body.(map[string]interface{})
			if !ok {
				continue
			}
			eps[m] = endpoint{
				Responses:  responseCodes(body["responses"]),
				Parameters: parameters(body["parameters"]),
			}
		}
		if len(eps) > 0 {
			c.Paths[c.BasePath+path] = eps
		}
	}
	return c, nil
}

func responseCodes(v interface{}) map[string]struct{} {
	out := make(map[string]struct{})
	m, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for code := range m {
		if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
			out[code] = struct{}{}
		}
	}
	return out
}

func parameters(v interface{}) map[string]bool {
	out := make(map[string]bool)
	list, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range list {
		p, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		in, _ := p["in"].(string)
		required, _ := p["required"].(bool)
		if name != "" {
			out[name+"@"+in] = required
		}
	}
	return out
}

// breakingChanges lists what revision removed or tightened relative to base.
func breakingChanges(base, revision contract) []string {
	var issues []string
	for path, baseEps := range base.Paths {
		revEps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseEp := range baseEps {
			op := strings.ToUpper(method) + " " + path
			revEp, ok := revEps[method]
			if !ok {
				issues = append(issues, "removed operation: "+op)
				continue
			}
			for code := range baseEp.Responses {
				if _, ok := revEp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s -> %s", op, strings.ToUpper(code)))
				}
			}
			for key, required := range revEp.Parameters {
				wasRequired, existed := baseEp.Parameters[key]
				if required && (!existed || !wasRequired) {
					issues = append(issues, fmt.Sprintf("new required parameter: %s %s", op, key))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
