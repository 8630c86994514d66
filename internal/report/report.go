// Package report renders a ScanResult for people and for other programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"funccensus/internal/models"
)

// Write renders r in the named format: json, yaml or tree.
func Write(w io.Writer, format string, r *models.ScanResult) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, r)
	case "yaml":
		return WriteYAML(w, r)
	case "tree":
		return WriteTree(w, r)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteJSON writes the flat path-to-outcome object followed by a newline.
func WriteJSON(w io.Writer, r *models.ScanResult) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes the same mapping as WriteJSON as a YAML document, keys in
// lexical order.
func WriteYAML(w io.Writer, r *models.ScanResult) error {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, fr := range r.Files() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fr.Path}
		value := &yaml.Node{Kind: yaml.ScalarNode}
		if fr.Outcome.Failed() {
			value.Tag = "!!str"
			value.Value = fr.Outcome.Failure
		} else {
			value.Tag = "!!int"
			value.Value = strconv.Itoa(fr.Outcome.Count)
		}
		doc.Content = append(doc.Content, key, value)
	}
	if len(doc.Content) == 0 {
		doc.Style = yaml.FlowStyle
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

type dirNode struct {
	name    string
	dirs    map[string]*dirNode
	files   []models.FileResult
	summary models.Summary
}

func newDirNode(name string) *dirNode {
	return &dirNode{name: name, dirs: make(map[string]*dirNode)}
}

// WriteTree renders a directory hierarchy with per-directory totals and the
// outcome of every file.
func WriteTree(w io.Writer, r *models.ScanResult) error {
	rootName := path.Base(strings.ReplaceAll(r.Root, "\\", "/"))
	if rootName == "" || rootName == "." || rootName == "/" {
		rootName = "."
	}
	root := buildTree(rootName, r)

	var b strings.Builder
	fmt.Fprintf(&b, "%s/ %s\n", root.name, formatSummary(root.summary))
	writeChildren(&b, root, "")
	for _, warning := range r.Warnings {
		fmt.Fprintf(&b, "⚠ %s\n", warning)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func buildTree(rootName string, r *models.ScanResult) *dirNode {
	root := newDirNode(rootName)
	for _, fr := range r.Files() {
		parts := strings.Split(fr.Path, "/")
		node := root
		node.add(fr)
		for _, dir := range parts[:len(parts)-1] {
			child, ok := node.dirs[dir]
			if !ok {
				child = newDirNode(dir)
				node.dirs[dir] = child
			}
			child.add(fr)
			node = child
		}
		node.files = append(node.files, models.FileResult{
			Path:    parts[len(parts)-1],
			Outcome: fr.Outcome,
		})
	}
	return root
}

func (n *dirNode) add(fr models.FileResult) {
	n.summary.Files++
	if fr.Outcome.Failed() {
		n.summary.Errors++
		return
	}
	n.summary.Functions += fr.Outcome.Count
}

type treeEntry struct {
	name string
	dir  *dirNode
	file *models.FileResult
}

func writeChildren(b *strings.Builder, node *dirNode, prefix string) {
	entries := make([]treeEntry, 0, len(node.dirs)+len(node.files))
	for name, dir := range node.dirs {
		entries = append(entries, treeEntry{name: name, dir: dir})
	}
	for i := range node.files {
		entries = append(entries, treeEntry{name: node.files[i].Path, file: &node.files[i]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for i, e := range entries {
		branch, indent := "├── ", "│   "
		if i == len(entries)-1 {
			branch, indent = "└── ", "    "
		}
		if e.dir != nil {
			fmt.Fprintf(b, "%s%s%s/ %s\n", prefix, branch, e.name, formatSummary(e.dir.summary))
			writeChildren(b, e.dir, prefix+indent)
			continue
		}
		if e.file.Outcome.Failed() {
			fmt.Fprintf(b, "%s%s%s: error: %s\n", prefix, branch, e.name, e.file.Outcome.Failure)
		} else {
			fmt.Fprintf(b, "%s%s%s: %d\n", prefix, branch, e.name, e.file.Outcome.Count)
		}
	}
}

func formatSummary(s models.Summary) string {
	parts := []string{
		plural(s.Files, "file"),
		plural(s.Functions, "function"),
	}
	if s.Errors > 0 {
		parts = append(parts, plural(s.Errors, "error"))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
