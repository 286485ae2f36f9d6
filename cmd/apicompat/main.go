// Command apicompat fails when the API document built into this binary drops
// a path, an operation or a documented response code that a baseline
// document still has. Mobile clients are pinned to old releases, so removals
// need a deliberate migration.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"jeevandhara/docs"

	"gopkg.in/yaml.v3"
)

var methods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

// surface maps path -> method -> response codes.
type surface map[string]map[string][]string

type document struct {
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

type operation struct {
	Responses map[string]yaml.Node `yaml:"responses"`
}

func main() {
	basePath := flag.String("base", "", "baseline swagger document (YAML or JSON)")
	revisionPath := flag.String("revision", "", "revision document; defaults to the built-in one")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: apicompat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load base: %v\n", err)
		os.Exit(1)
	}

	var revision surface
	if *revisionPath != "" {
		revision, err = loadFile(*revisionPath)
	} else {
		revision, err = parse([]byte(docs.SwaggerInfo.ReadDoc()))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load revision: %v\n", err)
		os.Exit(1)
	}

	if issues := compare(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Println("api compatibility check passed")
}

func loadFile(path string) (surface, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

// parse reads a swagger document. JSON is accepted since it is valid YAML.
func parse(raw []byte) (surface, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("document has no paths")
	}

	out := make(surface, len(doc.Paths))
	for path, ops := range doc.Paths {
		for method, node := range ops {
			method = strings.ToLower(strings.TrimSpace(method))
			if !slices.Contains(methods, method) {
				continue
			}
			var op operation
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			codes := make([]string, 0, len(op.Responses))
			for code := range op.Responses {
				codes = append(codes, strings.ToLower(strings.TrimSpace(code)))
			}
			if out[path] == nil {
				out[path] = map[string][]string{}
			}
			out[path][method] = codes
		}
	}
	return out, nil
}

func compare(base, revision surface) []string {
	var issues []string
	for path, ops := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, codes := range ops {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for _, code := range codes {
				if !slices.Contains(revCodes, code) {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	slices.Sort(issues)
	return issues
}
