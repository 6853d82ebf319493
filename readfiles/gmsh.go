package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadGmshNodeData reads an ASCII Gmsh 2.2 file holding $Nodes and one or
// more $NodeData views. It returns the x coordinate and value of every node
// for the last view named field, sorted by x.
func ReadGmshNodeData(r io.Reader, field string) (x, v []float64, err error) {
	var (
		scanner = bufio.NewScanner(r)
		nodeX   = make(map[int]float64)
		data    map[int]float64
		found   bool
	)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "$Nodes":
			if err = readNodes22(scanner, nodeX); err != nil {
				return
			}
		case "$NodeData":
			var (
				name string
				vals map[int]float64
			)
			if name, vals, err = readNodeData22(scanner); err != nil {
				return
			}
			if name == field {
				data, found = vals, true
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %v", err)
	}
	if !found {
		return nil, nil, &MissingFieldError{Key: field}
	}
	for id, val := range data {
		xx, ok := nodeX[id]
		if !ok {
			return nil, nil, fmt.Errorf("node data refers to unknown node %d", id)
		}
		x = append(x, xx)
		v = append(v, val)
	}
	SortXY(x, v)
	return
}

func readNodes22(scanner *bufio.Scanner, nodeX map[int]float64) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}
	numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid node count: %w", err)
	}
	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		nodeID, _ := strconv.Atoi(parts[0])
		xx, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}
		nodeX[nodeID] = xx
	}
	return skipTo(scanner, "$EndNodes")
}

// readNodeData22 reads the string, real and integer tags of a view followed
// by one value line per node. Only the first component is kept.
func readNodeData22(scanner *bufio.Scanner) (name string, vals map[int]float64, err error) {
	var (
		tags [3][]string
	)
	for k := range tags {
		if !scanner.Scan() {
			return "", nil, fmt.Errorf("unexpected EOF in NodeData tags")
		}
		var n int
		if n, err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
			return "", nil, fmt.Errorf("invalid NodeData tag count: %w", err)
		}
		for i := 0; i < n; i++ {
			if !scanner.Scan() {
				return "", nil, fmt.Errorf("unexpected EOF in NodeData tags")
			}
			tags[k] = append(tags[k], strings.TrimSpace(scanner.Text()))
		}
	}
	if len(tags[0]) != 0 {
		name = strings.Trim(tags[0][0], "\"")
	}
	if len(tags[2]) < 3 {
		return "", nil, fmt.Errorf("NodeData %q lacks the entry count", name)
	}
	count, err := strconv.Atoi(tags[2][2])
	if err != nil {
		return "", nil, fmt.Errorf("invalid NodeData entry count: %w", err)
	}
	vals = make(map[int]float64, count)
	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			return "", nil, fmt.Errorf("unexpected EOF reading NodeData %q", name)
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			return "", nil, fmt.Errorf("invalid NodeData line: %s", scanner.Text())
		}
		id, _ := strconv.Atoi(parts[0])
		val, perr := strconv.ParseFloat(parts[1], 64)
		if perr != nil {
			return "", nil, fmt.Errorf("invalid NodeData line: %s", scanner.Text())
		}
		vals[id] = val
	}
	err = skipTo(scanner, "$EndNodeData")
	return
}

func skipTo(scanner *bufio.Scanner, marker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == marker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF looking for %s", marker)
}
