// SPDX-License-Identifier: MPL-2.0

// Package depgraph records the package dependency graph built by an
// install run and orders it so that every package comes after the packages
// it depends on. Graphs are not safe for concurrent use.
package depgraph

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a dependency cycle, so no
	// install order exists.
	CycleError struct {
		// Cycle lists the packages left over once every acyclic package has
		// been ordered. It identifies the cycle, not necessarily minimally.
		Cycle []string
	}

	// Graph is a directed graph of packages. An edge from A to B means A
	// depends on B. Nodes are kept in insertion order for deterministic output.
	Graph struct {
		deps    map[string][]string
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		deps:    make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// AddPackage adds a node. Adding an existing node is a no-op.
func (g *Graph) AddPackage(id string) {
	if g.nodeSet[id] {
		return
	}
	g.nodeSet[id] = true
	g.nodes = append(g.nodes, id)
}

// AddDependency records that pkg depends on dep, adding both nodes.
// Duplicate edges are ignored.
func (g *Graph) AddDependency(pkg, dep string) {
	g.AddPackage(pkg)
	g.AddPackage(dep)
	if slices.Contains(g.deps[pkg], dep) {
		return
	}
	g.deps[pkg] = append(g.deps[pkg], dep)
}

// Packages returns every node in insertion order.
func (g *Graph) Packages() []string {
	return slices.Clone(g.nodes)
}

// Dependencies returns the direct dependencies of id in insertion order.
func (g *Graph) Dependencies(id string) []string {
	return slices.Clone(g.deps[id])
}

// Len returns the number of packages.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// InstallOrder returns the packages ordered dependencies-first using Kahn's
// algorithm. Packages that become ready at the same time keep insertion
// order. A cycle yields a *CycleError.
func (g *Graph) InstallOrder() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// Reverse edges: dep -> dependents, so that a package is released once
	// all of its dependencies are placed.
	dependents := make(map[string][]string, len(g.nodes))
	pending := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		pending[node] = len(g.deps[node])
		for _, dep := range g.deps[node] {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if pending[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range dependents[node] {
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if pending[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}

	return result, nil
}
